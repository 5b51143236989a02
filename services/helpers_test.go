package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/models"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenInMemory()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedMenuItem(t *testing.T, db *gorm.DB, name string, price float64) models.MenuItem {
	t.Helper()
	var r models.Restaurant
	if err := db.FirstOrCreate(&r, models.Restaurant{Name: "Test Kitchen", OwnerID: 1}).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	m := models.MenuItem{RestaurantID: r.ID, Name: name, Price: price, IsAvailable: true}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
	return m
}

func addToCart(t *testing.T, carts *CartService, userID, menuItemID uint, qty int) models.CartItem {
	t.Helper()
	row, err := carts.AddItem(context.Background(), userID, menuItemID, qty)
	if err != nil {
		t.Fatalf("AddItem(%d, %d): %v", menuItemID, qty, err)
	}
	return *row
}

// recordingNotifier captures status notifications
type recordingNotifier struct {
	mu     sync.Mutex
	events []models.OrderStatus
}

func (n *recordingNotifier) NotifyStatus(orderID uint, status models.OrderStatus, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, status)
}

func (n *recordingNotifier) statuses() []models.OrderStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.OrderStatus(nil), n.events...)
}
