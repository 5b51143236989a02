package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/payment"
	"food-ordering-api/pricing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentService struct {
	DB       *gorm.DB
	Payments payment.Processor
	Carts    *CartService
	Orders   *OrderService
	Currency string
	Log      *logger.Logger
}

func NewPaymentService(db *gorm.DB, payments payment.Processor, carts *CartService, orders *OrderService, currency string, log *logger.Logger) *PaymentService {
	if log == nil {
		log = logger.Discard()
	}
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{DB: db, Payments: payments, Carts: carts, Orders: orders, Currency: currency, Log: log}
}

// PaymentInput is what the client sends to pay for its cart
type PaymentInput struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
	ReturnURL       string `json:"return_url" binding:"required,url"`
	PromoCode       string `json:"promo_code"`
}

// PaymentResult reports the processor outcome. Order is only set by Checkout.
type PaymentResult struct {
	Succeeded      bool          `json:"success"`
	RequiresAction bool          `json:"requires_action,omitempty"`
	ClientSecret   string        `json:"payment_intent_client_secret,omitempty"`
	IntentID       string        `json:"payment_intent_id,omitempty"`
	AmountMinor    int64         `json:"amount"`
	Currency       string        `json:"currency"`
	Order          *models.Order `json:"order,omitempty"`
}

// Initiate charges the live cart total once. It does not create an order: the
// client is expected to call order creation after a success.
func (s *PaymentService) Initiate(ctx context.Context, userID uint, in PaymentInput) (*PaymentResult, error) {
	quote, err := s.Carts.Quote(ctx, userID, in.PromoCode)
	if err != nil {
		return nil, err
	}
	res, _, err := s.charge(ctx, userID, quote, in)
	if err != nil {
		return nil, err
	}
	if res.Succeeded {
		s.Log.Info(ctx, "payment_succeeded", "payment succeeded; waiting for the client to create the order",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("intent_id", res.IntentID))
	}
	return res, nil
}

// Checkout charges the cart and, when the charge succeeds, creates the order
// in the same call with the payment attached. A challenge returns without an
// order; the client then completes it and creates the order with the intent.
func (s *PaymentService) Checkout(ctx context.Context, userID uint, in PaymentInput) (*PaymentResult, error) {
	quote, err := s.Carts.Quote(ctx, userID, in.PromoCode)
	if err != nil {
		return nil, err
	}
	res, charge, err := s.charge(ctx, userID, quote, in)
	if err != nil || !res.Succeeded {
		return res, err
	}

	order, err := s.Orders.createFromCart(ctx, userID, in.PromoCode, charge)
	if err != nil {
		s.Log.Error(ctx, "payment_orphaned", "charged but the order could not be created", err,
			slog.Uint64("user_id", uint64(userID)),
			slog.String("intent_id", charge.ID),
			slog.Int64("amount", charge.AmountMinor))
		return nil, fmt.Errorf("payment %s succeeded but order creation failed: %w", charge.ID, err)
	}
	res.Order = order
	return res, nil
}

func (s *PaymentService) charge(ctx context.Context, userID uint, quote *Quote, in PaymentInput) (*PaymentResult, *payment.Charge, error) {
	if s.Payments == nil {
		return nil, nil, &PaymentFailedError{Status: "unavailable", Reason: payment.ErrNotConfigured.Error()}
	}

	amount := pricing.MinorUnits(quote.Totals.Total)
	charge, err := s.Payments.Charge(ctx, payment.ChargeRequest{
		AmountMinor:    amount,
		Currency:       s.Currency,
		PaymentMethod:  in.PaymentMethodID,
		ReturnURL:      in.ReturnURL,
		IdempotencyKey: uuid.NewString(),
		Metadata: map[string]string{
			"user_id":    strconv.FormatUint(uint64(userID), 10),
			"promo_code": quote.Totals.PromoCode,
		},
	})
	if err != nil {
		s.Log.Error(ctx, "payment_charge", "processor rejected the charge", err, slog.Uint64("user_id", uint64(userID)))
		return nil, nil, &PaymentFailedError{Status: "error", Reason: err.Error()}
	}

	res := &PaymentResult{IntentID: charge.ID, AmountMinor: amount, Currency: s.Currency}
	switch {
	case charge.Succeeded():
		res.Succeeded = true
	case charge.RequiresAction():
		res.RequiresAction = true
		res.ClientSecret = charge.ClientSecret
	default:
		return nil, nil, &PaymentFailedError{Status: charge.Status}
	}
	return res, charge, nil
}

// HandleWebhook verifies a processor notification and reconciles succeeded
// payments. Other event types are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.PaymentRecord, error) {
	if s.Payments == nil {
		return nil, payment.ErrNotConfigured
	}
	evt, err := s.Payments.ParseWebhook(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if evt.Type != payment.EventPaymentSucceeded {
		return nil, nil
	}
	return s.Reconcile(ctx, evt.Charge)
}

// Reconcile records a succeeded payment and links it to the order carrying
// its intent. A payment with no order is kept unlinked and logged.
func (s *PaymentService) Reconcile(ctx context.Context, charge payment.Charge) (*models.PaymentRecord, error) {
	record := models.PaymentRecord{
		IntentID:    charge.ID,
		AmountMinor: charge.AmountMinor,
		Currency:    charge.Currency,
		Status:      charge.Status,
	}
	if uid, err := strconv.ParseUint(charge.Metadata["user_id"], 10, 64); err == nil {
		record.UserID = uint(uid)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Select("id").Where("payment_intent_id = ?", charge.ID).First(&order).Error
		switch {
		case err == nil:
			record.OrderID = &order.ID
			if err := tx.Model(&order).Update("payment_verified", true).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "amount_minor", "currency", "order_id", "updated_at"}),
		}).Create(&record).Error; err != nil {
			return err
		}
		var stored models.PaymentRecord
		if err := tx.Where("intent_id = ?", charge.ID).First(&stored).Error; err != nil {
			return err
		}
		record = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	if record.OrderID == nil {
		s.Log.Warn(ctx, "payment_orphaned", "payment succeeded but no order references it",
			slog.String("intent_id", record.IntentID),
			slog.Uint64("user_id", uint64(record.UserID)),
			slog.Int64("amount", record.AmountMinor))
	}
	return &record, nil
}

// Unreconciled lists succeeded payments that no order references
func (s *PaymentService) Unreconciled(ctx context.Context) ([]models.PaymentRecord, error) {
	records := []models.PaymentRecord{}
	err := s.DB.WithContext(ctx).
		Where("order_id IS NULL AND status = ?", payment.StatusSucceeded).
		Order("created_at asc").
		Find(&records).Error
	return records, err
}
