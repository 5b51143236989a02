package services

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/payment"

	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type orderFixture struct {
	carts  *CartService
	orders *OrderService
	events *recordingNotifier
	user   models.User
	pizza  models.MenuItem
	salad  models.MenuItem
}

func newOrderFixture(t *testing.T, payments payment.Processor) orderFixture {
	t.Helper()
	db := newTestDB(t)
	events := &recordingNotifier{}
	return orderFixture{
		carts:  NewCartService(db),
		orders: NewOrderService(db, payments, events, logger.Discard()),
		events: events,
		user:   seedUser(t, db, "customer@example.com", models.RoleCustomer),
		pizza:  seedMenuItem(t, db, "Pizza", 100),
		salad:  seedMenuItem(t, db, "Salad", 50),
	}
}

// fillCart puts two pizzas and one salad in the cart: subtotal 250.
func (f orderFixture) fillCart(t *testing.T) {
	t.Helper()
	addToCart(t, f.carts, f.user.ID, f.pizza.ID, 2)
	addToCart(t, f.carts, f.user.ID, f.salad.ID, 1)
}

func TestCreateOrderFreezesCart(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t)

	order, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.Subtotal != 250 || order.DeliveryFee != 30 || order.Tax != 12.5 || order.Discount != 0 || order.Total != 292.5 {
		t.Errorf("totals = %v/%v/%v/%v/%v, want 250/30/12.5/0/292.5",
			order.Subtotal, order.DeliveryFee, order.Tax, order.Discount, order.Total)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %q, want Pending", order.Status)
	}
	if order.PaymentVerified {
		t.Error("order without an intent must not be marked verified")
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}

	items, _ := f.carts.ListItems(ctx, f.user.ID)
	if len(items) != 0 {
		t.Errorf("cart still has %d rows after checkout", len(items))
	}

	// later menu edits must not leak into the order
	f.orders.DB.Model(&models.MenuItem{}).Where("id = ?", f.pizza.ID).Updates(map[string]interface{}{"price": 999, "name": "Renamed"})
	stored, err := f.orders.GetForUser(ctx, f.user.ID, order.ID)
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if stored.Items[0].Price != 100 || stored.Items[0].Name != "Pizza" || stored.Total != 292.5 {
		t.Errorf("stored order changed after a menu edit: %+v", stored.Items[0])
	}
	if len(stored.StatusHistory) != 1 || stored.StatusHistory[0].ToStatus != models.StatusPending {
		t.Errorf("history = %+v", stored.StatusHistory)
	}

	if got := f.events.statuses(); !reflect.DeepEqual(got, []models.OrderStatus{models.StatusPending}) {
		t.Errorf("notifications = %v", got)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newOrderFixture(t, nil)
	_, err := f.orders.CreateOrder(context.Background(), f.user.ID, CreateOrderInput{})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("CreateOrder = %v, want ErrEmptyCart", err)
	}
	var count int64
	f.orders.DB.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("orders persisted = %d, want 0", count)
	}
}

func TestCreateOrderTotalsAddUp(t *testing.T) {
	tests := []struct {
		name   string
		pizzas int
		salads int
		promo  string
	}{
		{"single line", 1, 0, ""},
		{"two lines", 3, 2, ""},
		{"with promo", 2, 1, "WELCOME20"},
		{"lower case promo", 1, 5, "welcome20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, nil)
			if tt.pizzas > 0 {
				addToCart(t, f.carts, f.user.ID, f.pizza.ID, tt.pizzas)
			}
			if tt.salads > 0 {
				addToCart(t, f.carts, f.user.ID, f.salad.ID, tt.salads)
			}
			order, err := f.orders.CreateOrder(context.Background(), f.user.ID, CreateOrderInput{PromoCode: tt.promo})
			if err != nil {
				t.Fatalf("CreateOrder: %v", err)
			}
			want := order.Subtotal + order.DeliveryFee + order.Tax - order.Discount
			if order.Total != want {
				t.Errorf("total = %v, want %v", order.Total, want)
			}
			if tt.promo != "" && (order.PromoCode != "WELCOME20" || order.Discount != order.Subtotal*0.2) {
				t.Errorf("promo = %q discount = %v", order.PromoCode, order.Discount)
			}
		})
	}
}

func TestCreateOrderUnknownPromoKeepsCart(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t)

	_, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{PromoCode: "FREEFOOD"})
	if !errors.Is(err, ErrInvalidPromo) {
		t.Fatalf("CreateOrder = %v, want ErrInvalidPromo", err)
	}
	items, _ := f.carts.ListItems(ctx, f.user.ID)
	if len(items) != 2 {
		t.Errorf("cart rows = %d, want 2", len(items))
	}
}

// Units added after the cart snapshot was read survive checkout.
func TestClearBilledRowsKeepsLaterAdditions(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	addToCart(t, f.carts, f.user.ID, f.pizza.ID, 2)

	snapshot, err := f.carts.ListItems(ctx, f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	addToCart(t, f.carts, f.user.ID, f.pizza.ID, 1)
	addToCart(t, f.carts, f.user.ID, f.salad.ID, 1)

	if err := clearBilledRows(f.orders.DB, f.user.ID, snapshot); err != nil {
		t.Fatalf("clearBilledRows: %v", err)
	}

	items, _ := f.carts.ListItems(ctx, f.user.ID)
	got := map[uint]int{}
	for _, it := range items {
		got[it.MenuItemID] = it.Quantity
	}
	want := map[uint]int{f.pizza.ID: 1, f.salad.ID: 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("remaining cart = %v, want %v", got, want)
	}
}

func TestCancel(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	other := seedUser(t, f.orders.DB, "other@example.com", models.RoleCustomer)
	f.fillCart(t)
	order, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.orders.Cancel(ctx, other.ID, order.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel by another user = %v, want ErrNotFound", err)
	}

	cancelled, err := f.orders.Cancel(ctx, f.user.ID, order.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled || cancelled.Total != order.Total {
		t.Errorf("cancelled order = %+v", cancelled)
	}

	if _, err := f.orders.Cancel(ctx, f.user.ID, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Cancel = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelRejectsNonPending(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered} {
		t.Run(string(status), func(t *testing.T) {
			f := newOrderFixture(t, nil)
			ctx := context.Background()
			f.fillCart(t)
			order, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
			if err != nil {
				t.Fatal(err)
			}
			f.orders.DB.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", status)

			if _, err := f.orders.Cancel(ctx, f.user.ID, order.ID); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Cancel = %v, want ErrInvalidTransition", err)
			}
			stored, _ := f.orders.Get(ctx, order.ID)
			if stored.Status != status {
				t.Errorf("status = %q, want unchanged %q", stored.Status, status)
			}
		})
	}
}

func TestSetStatusOperator(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t)
	order, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		to      models.OrderStatus
		wantErr bool
	}{
		{models.StatusOutForDelivery, false}, // skip Preparing
		{models.StatusPending, false},        // move back
		{models.StatusPending, true},         // no-op
		{models.StatusCancelled, true},       // customers only
		{models.StatusDelivered, false},
		{models.StatusPreparing, true}, // terminal
	}
	for _, step := range steps {
		change, err := f.orders.SetStatus(ctx, order.ID, step.to, 99, "")
		if step.wantErr {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("SetStatus(%q) = %v, want ErrInvalidTransition", step.to, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SetStatus(%q): %v", step.to, err)
		}
		if change.To != step.to || change.Order.Status != step.to {
			t.Errorf("change = %+v", change)
		}
	}

	stored, _ := f.orders.Get(ctx, order.ID)
	// placed + three applied transitions
	if len(stored.StatusHistory) != 4 {
		t.Errorf("history rows = %d, want 4", len(stored.StatusHistory))
	}
	if _, err := f.orders.SetStatus(ctx, 4242, models.StatusPreparing, 99, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus on missing order = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesOrderButCancelKeepsIt(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	f.fillCart(t)
	kept, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatal(err)
	}
	f.fillCart(t)
	removed, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.orders.Cancel(ctx, f.user.ID, kept.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := f.orders.Delete(ctx, removed.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := f.orders.Get(ctx, removed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get deleted order = %v, want ErrNotFound", err)
	}
	if err := f.orders.Delete(ctx, removed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	got, err := f.orders.Get(ctx, kept.ID)
	if err != nil || got.Status != models.StatusCancelled {
		t.Errorf("cancelled order = %+v, %v", got, err)
	}
	var items int64
	f.orders.DB.Model(&models.OrderItem{}).Where("order_id = ?", removed.ID).Count(&items)
	if items != 0 {
		t.Errorf("order items left behind: %d", items)
	}
}

func TestListForRestaurant(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	db := f.orders.DB

	other := models.Restaurant{Name: "Elsewhere", OwnerID: 2}
	db.Create(&other)
	soup := models.MenuItem{RestaurantID: other.ID, Name: "Soup", Price: 20}
	db.Create(&soup)

	f.fillCart(t)
	mine, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{})
	if err != nil {
		t.Fatal(err)
	}
	addToCart(t, f.carts, f.user.ID, soup.ID, 1)
	if _, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{}); err != nil {
		t.Fatal(err)
	}

	orders, err := f.orders.ListForRestaurant(ctx, f.pizza.RestaurantID, "")
	if err != nil {
		t.Fatalf("ListForRestaurant: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != mine.ID {
		t.Errorf("orders = %+v, want only order %d", orders, mine.ID)
	}

	all, _ := f.orders.ListAll(ctx, OrderFilter{})
	if len(all) != 2 {
		t.Errorf("ListAll = %d orders, want 2", len(all))
	}
	pending, _ := f.orders.ListAll(ctx, OrderFilter{Status: models.StatusDelivered})
	if len(pending) != 0 {
		t.Errorf("ListAll(Delivered) = %d orders, want 0", len(pending))
	}
}

func TestCreateOrderWithVerifiedIntent(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := payment.NewMockProcessor(ctrl)
	f := newOrderFixture(t, processor)
	ctx := context.Background()
	f.fillCart(t)

	processor.EXPECT().Retrieve(gomock.Any(), "pi_ok").Return(&payment.Charge{
		ID:          "pi_ok",
		Status:      payment.StatusSucceeded,
		AmountMinor: 29250,
		Currency:    "usd",
		Metadata:    map[string]string{"user_id": strconv.FormatUint(uint64(f.user.ID), 10)},
	}, nil).Times(2)

	order, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{PaymentIntentID: "pi_ok"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.PaymentVerified || order.PaymentIntentID == nil || *order.PaymentIntentID != "pi_ok" {
		t.Errorf("order payment = %v verified=%v", order.PaymentIntentID, order.PaymentVerified)
	}

	// the same intent cannot pay for a second order
	f.fillCart(t)
	_, err = f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{PaymentIntentID: "pi_ok"})
	if !errors.Is(err, ErrPaymentFailed) {
		t.Errorf("reused intent = %v, want ErrPaymentFailed", err)
	}
}

func TestCreateOrderRejectsBadIntent(t *testing.T) {
	tests := []struct {
		name   string
		charge *payment.Charge
		owned  bool
		err    error
	}{
		{
			name:   "amount mismatch",
			charge: &payment.Charge{ID: "pi_x", Status: payment.StatusSucceeded, AmountMinor: 100},
			owned:  true,
		},
		{
			name:   "not succeeded",
			charge: &payment.Charge{ID: "pi_x", Status: payment.StatusRequiresAction, AmountMinor: 29250},
			owned:  true,
		},
		{
			name:   "other user",
			charge: &payment.Charge{ID: "pi_x", Status: payment.StatusSucceeded, AmountMinor: 29250, Metadata: map[string]string{"user_id": "77"}},
		},
		{
			name:   "no owner",
			charge: &payment.Charge{ID: "pi_x", Status: payment.StatusSucceeded, AmountMinor: 29250},
		},
		{
			name: "processor error",
			err:  errors.New("no such payment_intent"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			processor := payment.NewMockProcessor(ctrl)
			f := newOrderFixture(t, processor)
			ctx := context.Background()
			f.fillCart(t)

			charge := tt.charge
			if tt.owned {
				c := *tt.charge
				c.Metadata = map[string]string{"user_id": strconv.FormatUint(uint64(f.user.ID), 10)}
				charge = &c
			}
			processor.EXPECT().Retrieve(gomock.Any(), "pi_x").Return(charge, tt.err)

			_, err := f.orders.CreateOrder(ctx, f.user.ID, CreateOrderInput{PaymentIntentID: "pi_x"})
			var pfe *PaymentFailedError
			if !errors.As(err, &pfe) {
				t.Fatalf("CreateOrder = %v, want PaymentFailedError", err)
			}
			items, _ := f.carts.ListItems(ctx, f.user.ID)
			if len(items) != 2 {
				t.Errorf("cart rows = %d, want 2", len(items))
			}
		})
	}
}

func TestPaymentIntentLinksAtMostOneOrder(t *testing.T) {
	f := newOrderFixture(t, nil)
	db := f.orders.DB
	intent := "pi_once"

	first := models.Order{UserID: f.user.ID, Status: models.StatusPending, PaymentIntentID: &intent}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create first order: %v", err)
	}
	second := models.Order{UserID: f.user.ID, Status: models.StatusPending, PaymentIntentID: &intent}
	if err := db.Create(&second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("second order with the same intent = %v, want ErrDuplicatedKey", err)
	}

	// orders without an intent do not collide
	for i := 0; i < 2; i++ {
		if err := db.Create(&models.Order{UserID: f.user.ID, Status: models.StatusPending}).Error; err != nil {
			t.Fatalf("create unpaid order %d: %v", i, err)
		}
	}
}

func TestCreateOrderRequiresVerifiedPayment(t *testing.T) {
	f := newOrderFixture(t, nil)
	f.orders.RequireVerifiedPayment = true
	f.fillCart(t)

	_, err := f.orders.CreateOrder(context.Background(), f.user.ID, CreateOrderInput{})
	if !errors.Is(err, ErrPaymentFailed) {
		t.Errorf("CreateOrder = %v, want ErrPaymentFailed", err)
	}
}
