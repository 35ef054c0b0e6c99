// Package trace carries the per-request trace ID through context so the
// service layer can stamp it onto outbox rows.
package trace

import "context"

type ctxKey struct{}

func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the trace ID, or "" when the context carries none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
