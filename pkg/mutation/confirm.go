package mutation

import "context"

// Confirmer guards destructive actions. Confirm returns true only when the
// person driving the client explicitly agreed to delete the record.
type Confirmer interface {
	Confirm(ctx context.Context, id string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, id string) (bool, error)

// Confirm calls f. A nil f declines.
func (f ConfirmFunc) Confirm(ctx context.Context, id string) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, id)
}

// AutoConfirm approves every delete. Use it only where the caller has
// already collected consent, such as a --yes flag or a confirm=true request.
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// Deny declines every delete.
var Deny Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return false, nil
})
