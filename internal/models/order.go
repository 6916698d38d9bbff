package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	UserID       uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User         *User       `json:"user,omitempty"`
	OrderNumber  string      `gorm:"uniqueIndex" json:"order_number"`
	Status       string      `json:"status"`
	PlacedAt     time.Time   `json:"placed_at"`
	TotalAmount  float64     `json:"total_amount"`
	Currency     string      `json:"currency"`
	PaymentID    string      `json:"payment_id"`
	PreferenceID string      `json:"preference_id"`
	Items        []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
}
