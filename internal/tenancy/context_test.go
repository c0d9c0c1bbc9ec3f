package tenancy

import (
	"context"
	"testing"
)

func TestAppIDRoundTrip(t *testing.T) {
	ctx := WithAppID(context.Background(), "careconnect-ai-app")
	got, ok := AppIDFromContext(ctx)
	if !ok {
		t.Fatal("expected app id in context")
	}
	if got != "careconnect-ai-app" {
		t.Fatalf("unexpected app id: %s", got)
	}
}

func TestAppIDMissing(t *testing.T) {
	if _, ok := AppIDFromContext(context.Background()); ok {
		t.Fatal("expected no app id in empty context")
	}
}

func TestAppIDEmptyValueNotOK(t *testing.T) {
	ctx := WithAppID(context.Background(), "")
	if _, ok := AppIDFromContext(ctx); ok {
		t.Fatal("empty app id should not resolve")
	}
}
