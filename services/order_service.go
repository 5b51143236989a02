package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/payment"
	"food-ordering-api/pricing"
	"food-ordering-api/statemachine"

	"gorm.io/gorm"
)

// StatusNotifier is told about every status an order enters
type StatusNotifier interface {
	NotifyStatus(orderID uint, status models.OrderStatus, at time.Time)
}

type OrderService struct {
	DB       *gorm.DB
	Payments payment.Processor
	Notifier StatusNotifier
	Log      *logger.Logger

	// RequireVerifiedPayment rejects order creation unless a succeeded
	// payment intent is presented.
	RequireVerifiedPayment bool
}

func NewOrderService(db *gorm.DB, payments payment.Processor, notifier StatusNotifier, log *logger.Logger) *OrderService {
	if log == nil {
		log = logger.Discard()
	}
	return &OrderService{DB: db, Payments: payments, Notifier: notifier, Log: log}
}

// CreateOrderInput carries the optional parts of a checkout
type CreateOrderInput struct {
	PromoCode       string `json:"promo_code"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// StatusChange describes an applied transition
type StatusChange struct {
	Order *models.Order
	From  models.OrderStatus
	To    models.OrderStatus
}

// OrderFilter narrows admin listings; zero values match everything
type OrderFilter struct {
	Status models.OrderStatus
	UserID uint
}

// CreateOrder turns the user's cart into a Pending order. The caller is
// trusted to have completed payment unless a payment intent is supplied, in
// which case it is verified with the processor and linked to the order.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*models.Order, error) {
	var rows int64
	if err := s.DB.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&rows).Error; err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrEmptyCart
	}

	var charge *payment.Charge
	switch {
	case in.PaymentIntentID != "":
		c, err := s.verifyPayment(ctx, userID, in.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		charge = c
	case s.RequireVerifiedPayment:
		return nil, &PaymentFailedError{Status: "missing", Reason: "a confirmed payment is required"}
	}

	return s.createFromCart(ctx, userID, in.PromoCode, charge)
}

func (s *OrderService) verifyPayment(ctx context.Context, userID uint, intentID string) (*payment.Charge, error) {
	if s.Payments == nil {
		return nil, &PaymentFailedError{Status: "unverifiable", Reason: payment.ErrNotConfigured.Error()}
	}
	charge, err := s.Payments.Retrieve(ctx, intentID)
	if err != nil {
		return nil, &PaymentFailedError{Status: "unknown", Reason: err.Error()}
	}
	if !charge.Succeeded() {
		return nil, &PaymentFailedError{Status: charge.Status}
	}
	switch owner := charge.Metadata["user_id"]; owner {
	case strconv.FormatUint(uint64(userID), 10):
	case "":
		return nil, &PaymentFailedError{Status: charge.Status, Reason: "payment has no owner"}
	default:
		return nil, &PaymentFailedError{Status: charge.Status, Reason: "payment belongs to another user"}
	}
	return charge, nil
}

// createFromCart snapshots the cart into an order inside one transaction.
// A non-nil charge has already succeeded and must match the computed total.
func (s *OrderService) createFromCart(ctx context.Context, userID uint, promo string, charge *payment.Charge) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := listCart(tx, userID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.MenuItem.ID == 0 {
				return notFound(fmt.Sprintf("menu item %d", it.MenuItemID))
			}
		}
		quote, err := quoteItems(items, promo)
		if err != nil {
			return err
		}

		if charge != nil {
			if charge.AmountMinor != pricing.MinorUnits(quote.Totals.Total) {
				return &PaymentFailedError{Status: charge.Status, Reason: "charged amount does not match the cart total"}
			}
			var used int64
			if err := tx.Model(&models.Order{}).Where("payment_intent_id = ?", charge.ID).Count(&used).Error; err != nil {
				return err
			}
			if used > 0 {
				return paymentReused(charge)
			}
		}

		order = buildOrder(userID, quote, charge)
		if err := tx.Create(&order).Error; err != nil {
			// a concurrent checkout linked the intent between the count and the insert
			if charge != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return paymentReused(charge)
			}
			return err
		}
		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: userID,
			Note:      "Order placed by customer",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		if charge != nil {
			if err := tx.Model(&models.PaymentRecord{}).
				Where("intent_id = ?", charge.ID).
				Update("order_id", order.ID).Error; err != nil {
				return err
			}
		}
		return clearBilledRows(tx, userID, items)
	})
	if err != nil {
		return nil, err
	}

	if !order.PaymentVerified {
		s.Log.Warn(ctx, "order_unverified_payment", "order created without a verified payment",
			slog.Uint64("order_id", uint64(order.ID)),
			slog.Uint64("user_id", uint64(userID)),
			slog.Float64("total", order.Total))
	}
	s.notify(order.ID, order.Status)
	return &order, nil
}

func buildOrder(userID uint, quote *Quote, charge *payment.Charge) models.Order {
	items := make([]models.OrderItem, 0, len(quote.Items))
	for _, it := range quote.Items {
		items = append(items, models.OrderItem{
			MenuItemID: it.MenuItemID,
			Name:       it.MenuItem.Name,
			Quantity:   it.Quantity,
			Price:      it.MenuItem.Price,
		})
	}
	t := quote.Totals
	order := models.Order{
		UserID:      userID,
		Items:       items,
		Subtotal:    pricing.Float(t.Subtotal),
		DeliveryFee: pricing.Float(t.DeliveryFee),
		Tax:         pricing.Float(t.Tax),
		Discount:    pricing.Float(t.Discount),
		PromoCode:   t.PromoCode,
		Total:       pricing.Float(t.Total),
		Status:      models.StatusPending,
	}
	if charge != nil {
		intentID := charge.ID
		order.PaymentIntentID = &intentID
		order.PaymentVerified = true
	}
	return order
}

func paymentReused(charge *payment.Charge) error {
	return &PaymentFailedError{Status: charge.Status, Reason: "payment already used for another order"}
}

// clearBilledRows removes exactly the units that were billed. Rows that grew
// after the cart was read keep the difference instead of vanishing unbilled.
func clearBilledRows(tx *gorm.DB, userID uint, billed []models.CartItem) error {
	for _, it := range billed {
		if err := tx.Model(&models.CartItem{}).
			Where("id = ?", it.ID).
			Update("quantity", gorm.Expr("quantity - ?", it.Quantity)).Error; err != nil {
			return err
		}
	}
	return tx.Where("user_id = ? AND quantity <= 0", userID).Delete(&models.CartItem{}).Error
}

// ListForUser returns the user's orders, newest first
func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

// GetForUser returns one of the user's orders
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order")
		}
		return nil, err
	}
	return &order, nil
}

// Get returns any order
func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order")
		}
		return nil, err
	}
	return &order, nil
}

// ListAll returns every order matching f, newest first
func (s *OrderService) ListAll(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := s.DB.WithContext(ctx).Preload("Items").Preload("User")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	orders := []models.Order{}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// ListForRestaurant returns orders containing at least one of the
// restaurant's menu items
func (s *OrderService) ListForRestaurant(ctx context.Context, restaurantID uint, status models.OrderStatus) ([]models.Order, error) {
	db := s.DB.WithContext(ctx)
	sub := db.Model(&models.OrderItem{}).
		Select("order_items.order_id").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Where("menu_items.restaurant_id = ?", restaurantID)

	q := db.Preload("Items").Preload("User").Where("id IN (?)", sub)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	orders := []models.Order{}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// BelongsToRestaurant reports whether the order contains any of the
// restaurant's menu items
func (s *OrderService) BelongsToRestaurant(ctx context.Context, orderID, restaurantID uint) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Where("order_items.order_id = ? AND menu_items.restaurant_id = ?", orderID, restaurantID).
		Count(&n).Error
	return n > 0, err
}

// Cancel moves one of the user's orders from Pending to Cancelled. Only the
// status column is written.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND user_id = ? AND status = ?", orderID, userID, models.StatusPending).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Order
			if err := tx.Select("id", "status").Where("id = ? AND user_id = ?", orderID, userID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("order")
				}
				return err
			}
			return fmt.Errorf("%w: cannot cancel a non-pending order (status %s)", ErrInvalidTransition, current.Status)
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: models.StatusPending,
			ToStatus:   models.StatusCancelled,
			ChangedBy:  userID,
			Note:       "Order cancelled by customer",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify(orderID, models.StatusCancelled)
	return s.Get(ctx, orderID)
}

// SetStatus applies an operator transition. Operators may jump or move back
// between non-terminal states; see statemachine for the rules.
func (s *OrderService) SetStatus(ctx context.Context, orderID uint, to models.OrderStatus, actorID uint, note string) (*StatusChange, error) {
	var from models.OrderStatus
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Select("id", "status").First(&current, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("order")
			}
			return err
		}
		from = current.Status
		if err := statemachine.CanTransition(from, to, statemachine.ActorOperator); err != nil {
			return err
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %d changed status concurrently", ErrInvalidTransition, orderID)
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actorID,
			Note:       note,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify(orderID, to)

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusChange{Order: order, From: from, To: to}, nil
}

// Delete removes an order and everything hanging off it. This bypasses the
// state machine and cannot be undone.
func (s *OrderService) Delete(ctx context.Context, orderID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PaymentRecord{}).Where("order_id = ?", orderID).Update("order_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, orderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("order")
		}
		return nil
	})
}

func (s *OrderService) notify(orderID uint, status models.OrderStatus) {
	if s.Notifier != nil {
		s.Notifier.NotifyStatus(orderID, status, time.Now())
	}
}
