package models

import "gorm.io/gorm"

// Review is a user's rating of a product.
type Review struct {
	ID         string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID     string  `json:"user_id" gorm:"index;type:varchar(36)"`
	ProductID  string  `json:"product_id" gorm:"index;type:varchar(36)"`
	Rating     float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string  `json:"comment" validate:"omitempty,max=1000"`
	gorm.Model         // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
