package models

import "github.com/google/uuid"

// Cart is the server-side cart for an authenticated user. Guests keep their
// cart on the client; only authenticated sessions get a row here.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem snapshots the product at add time so carts stay renderable even
// when the catalog entry changes afterwards. Stock is the cap that was in
// force when the line was created or last synced.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;index:idx_cart_product,unique" json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;index:idx_cart_product,unique" json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	ImgURL    string    `json:"imgUrl"`
	Stock     int       `json:"stock"`
}
