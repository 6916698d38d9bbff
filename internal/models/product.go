package models

import "github.com/google/uuid"

// NoImage is the sentinel stored when a product has no uploaded picture.
const NoImage = "No image"

type Category struct {
	BaseModel
	Name     string    `gorm:"uniqueIndex" json:"name"`
	Products []Product `json:"products,omitempty"`
}

type Product struct {
	BaseModel
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	ImgURL      string     `json:"imgUrl"`
	Featured    bool       `json:"featured"`
	CategoryID  *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category    *Category  `json:"category,omitempty"`
}
