package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/tracking"

	"github.com/gorilla/websocket"
)

func TestTrackOrder(t *testing.T) {
	api := newTestAPI(t)
	hub := tracking.NewHub(logger.Discard())
	config.Tracker = hub
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	_, customer := api.user("c@example.com", models.RoleCustomer)
	_, stranger := api.user("s@example.com", models.RoleCustomer)
	owner, ownerToken := api.user("o@example.com", models.RoleRestaurant)
	_, items := api.restaurant(owner.ID, true, menu()...)
	api.fillCart(customer, items)
	var created orderResponse
	decode(t, api.do(http.MethodPost, "/api/customer/orders", customer, nil), &created)
	orderID := created.Order.ID

	wsURL := fmt.Sprintf("%s/api/orders/%d/track?token=", strings.Replace(srv.URL, "http", "ws", 1), orderID)

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+stranger, nil); err == nil {
		t.Fatal("stranger subscribed to someone else's order")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger dial: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+customer, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var evt tracking.OrderEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read current status: %v", err)
	}
	if evt.OrderID != orderID || evt.Status != models.StatusPending {
		t.Fatalf("first event = %+v", evt)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(orderID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	path := fmt.Sprintf("/api/restaurant/orders/%d/status", orderID)
	expectStatus(t, api.do(http.MethodPut, path, ownerToken, map[string]string{"status": "Preparing"}), http.StatusOK)

	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if evt.Status != models.StatusPreparing {
		t.Errorf("update = %+v, want Preparing", evt)
	}
}
