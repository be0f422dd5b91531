package uow

import "context"

// TxManager runs fn inside a single storage transaction. Repositories pick
// the transaction up from the context handed to fn.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxFunc adapts a plain function to TxManager.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f TxFunc) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Passthrough runs fn directly. Used by tests and stores without transactions.
var Passthrough TxManager = TxFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
