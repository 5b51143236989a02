package models

import "time"

// PaymentRecord is written when the processor reports a payment outcome
// through the webhook. OrderID stays nil while no order carries the intent.
type PaymentRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IntentID    string    `json:"intent_id" gorm:"uniqueIndex;not null"`
	UserID      uint      `json:"user_id" gorm:"index"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	OrderID     *uint     `json:"order_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
