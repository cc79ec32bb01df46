package trace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithID(t *testing.T) {
	ctx := context.Background()
	if got := ID(ctx); got != "" {
		t.Errorf("ID(background) = %q, want empty", got)
	}
	if got := ID(WithID(ctx, "")); got != "" {
		t.Errorf("empty id should not be stored, got %q", got)
	}
	if got := ID(WithID(ctx, "op_1")); got != "op_1" {
		t.Errorf("ID() = %q, want op_1", got)
	}
}

func TestEnsureID(t *testing.T) {
	ctx := EnsureID(context.Background())
	id := ID(ctx)
	if !strings.HasPrefix(id, "op_") {
		t.Fatalf("EnsureID() id = %q, want op_ prefix", id)
	}
	if again := ID(EnsureID(ctx)); again != id {
		t.Errorf("EnsureID() replaced existing id %q with %q", id, again)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestHandler_StampsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "test")

	logger.InfoContext(WithID(context.Background(), "op_abc"), "traced")
	logger.Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "correlation_id=op_abc") || !strings.Contains(lines[0], "component=test") {
		t.Errorf("traced record = %s", lines[0])
	}
	if strings.Contains(lines[1], "correlation_id") {
		t.Errorf("untraced record should have no correlation id: %s", lines[1])
	}
}

func TestNewHandler_DoesNotDoubleWrap(t *testing.T) {
	h := NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if NewHandler(h) != h {
		t.Error("wrapping a trace handler twice should return it unchanged")
	}
}

func TestLevel(t *testing.T) {
	domain := func(err error) bool { return err.Error() == "rejected" }
	tests := []struct {
		name string
		err  error
		want slog.Level
	}{
		{"success", nil, slog.LevelInfo},
		{"domain rejection", errors.New("rejected"), slog.LevelWarn},
		{"failure", errors.New("disk"), slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.err, domain); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}
