package httpserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const operatorKey ctxKey = "npos.operator"

// Operator is the authenticated caller of a request.
type Operator struct {
	ID       uuid.UUID
	Username string
}

// WithOperator stores the authenticated operator in context.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFromCtx fetches the operator from context.
func OperatorFromCtx(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}
