package checkout

import "errors"

// Every failure below is an operator-recoverable condition. Callers branch
// with errors.Is and map each to a distinct notification; none of them may
// abort the session or clear a cart as a side effect.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrLookupFailed       = errors.New("catalog lookup failed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidDiscount    = errors.New("discount percent out of range")
	ErrChannelLimit       = errors.New("channel limit reached")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrLastChannel        = errors.New("cannot close the last channel")
	ErrCloseNeedsConfirm  = errors.New("closing a non-empty channel requires confirmation")
	ErrCustomerRequired   = errors.New("on-account payment requires a customer")
	ErrInsufficientTender = errors.New("insufficient tender")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrChannelBusy        = errors.New("channel has an operation in flight")
	ErrInvalidPayment     = errors.New("invalid payment")
	ErrCartChanged        = errors.New("cart changed since tender was captured")
)
