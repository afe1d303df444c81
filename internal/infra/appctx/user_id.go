package appctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Identity - аутентифицированный пользователь запроса
type Identity struct {
	UserID uuid.UUID
}

// WithIdentity добавляет identity в контекст
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom извлекает identity из контекста
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}

	return id, true
}

// UserID извлекает userID из контекста
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}
