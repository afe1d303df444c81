package appctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestIdentityRoundTrip(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Fatal("empty context must not carry identity")
	}

	if _, ok := UserID(WithIdentity(context.Background(), Identity{})); ok {
		t.Fatal("nil user id must be rejected")
	}

	id := uuid.New()
	ctx := WithIdentity(context.Background(), Identity{UserID: id})

	got, ok := UserID(ctx)
	if !ok || got != id {
		t.Fatalf("UserID = %s, %v", got, ok)
	}
}
