package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("orders", &buf, slog.LevelDebug)

	ctx := WithRequestID(context.Background(), "req-42")
	l.Error(ctx, "order_create", "failed to create order", errors.New("boom"), slog.Uint64("user_id", 7))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]any{
		"service":    "orders",
		"action":     "order_create",
		"request_id": "req-42",
		"msg":        "failed to create order",
		"level":      "ERROR",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %v", key, rec[key], want)
		}
	}
	if rec["user_id"] != float64(7) {
		t.Errorf("user_id = %v", rec["user_id"])
	}
	errGroup, ok := rec["error"].(map[string]any)
	if !ok || errGroup["msg"] != "boom" {
		t.Errorf("error group = %v", rec["error"])
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("orders", &buf, slog.LevelWarn)
	l.Info(context.Background(), "noop", "hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn(context.Background(), "gap", "shown")
	if buf.Len() == 0 {
		t.Error("warn should be written")
	}
}
