package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValue_SetsAndGetsTypedKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), Client, "desktop")
	got, ok := String(ctx, Client)
	if !ok {
		t.Fatalf("expected value to be present")
	}
	if got != "desktop" {
		t.Fatalf("expected desktop, got %q", got)
	}
}

func TestString_UntypedKeyDoesNotCollide(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), "client", "x") //nolint:staticcheck // collision check
	if _, ok := String(ctx, Client); ok {
		t.Fatal("plain string key must not satisfy ctxkeys.Client")
	}
}

func TestString_EmptyIsMissing(t *testing.T) {
	t.Parallel()

	if _, ok := String(WithValue(context.Background(), Client, ""), Client); ok {
		t.Fatal("empty value should report missing")
	}
}
