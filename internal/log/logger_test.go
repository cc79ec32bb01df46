package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: ComponentAccounts})

	l.Info("Account created", NewFields().WithAccount("a1", "Wallet").ToSlice()...)

	out := buf.String()
	for _, want := range []string{"component=accounts", "account_id=a1", "account_name=Wallet"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	buf.Reset()
	l.WithComponent(ComponentBudget).Warn("x")
	if !strings.Contains(buf.String(), "component=budgets") {
		t.Errorf("WithComponent not applied: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields_WithError(t *testing.T) {
	f := NewFields().WithError(nil, "x")
	if len(f) != 0 {
		t.Fatalf("nil error should add nothing: %v", f)
	}
	f = NewFields().WithError(errors.New("boom"), "internal")
	if f[FieldError] != "boom" || f[FieldErrorKind] != "internal" {
		t.Fatalf("unexpected fields: %v", f)
	}
}
