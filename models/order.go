package models

import "time"

// OrderStatus is the lifecycle state of an order. The values are part of the
// public API and are compared case-sensitively.
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusPreparing      OrderStatus = "Preparing"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// Order is an immutable snapshot of a cart at checkout. Only Status and the
// payment verification flag change after creation.
type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	UserID          uint                 `json:"user_id" gorm:"not null;index"`
	User            *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Subtotal        float64              `json:"subtotal"`
	DeliveryFee     float64              `json:"delivery_fee"`
	Tax             float64              `json:"tax"`
	Discount        float64              `json:"discount"`
	PromoCode       string               `json:"promo_code,omitempty"`
	Total           float64              `json:"total"`
	Status          OrderStatus          `json:"status" gorm:"not null;default:'Pending';index"`
	PaymentIntentID *string              `json:"payment_intent_id,omitempty" gorm:"uniqueIndex"`
	PaymentVerified bool                 `json:"payment_verified"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderID    uint      `json:"order_id" gorm:"not null;index"`
	MenuItemID uint      `json:"menu_item_id" gorm:"not null;index"`
	MenuItem   *MenuItem `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Name       string    `json:"name"`                  // snapshot name
	Quantity   int       `json:"quantity" gorm:"not null"`
	Price      float64   `json:"price" gorm:"not null"` // unit price at time of order
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
