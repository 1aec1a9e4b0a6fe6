package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMarketClosed       = errors.New("Market is closed!!!")
	ErrInsufficientFunds  = errors.New("Insufficient funds")
	ErrDoubleConfirmation = errors.New("Double processing of transaction")
	ErrOrderNotFound      = errors.New("Order not found")
	ErrOrderProcessed     = errors.New("Order already processed")
	ErrInvalidOrder       = errors.New("Invalid order")
	ErrUserNotFound       = errors.New("User not found")
	ErrUserInactive       = errors.New("User is not active")
	ErrAccountNotFound    = errors.New("Account not found")
	ErrStockNotFound      = errors.New("Stock not found")
	ErrSettlementRunning  = errors.New("Settlement already running")
	ErrInvalidFeed        = errors.New("Invalid stock feed")
)

// ShareCapExceededError rejects a buy order for a stock the user already owns
// the maximum number of units of.
type ShareCapExceededError struct {
	Code string
	Max  int
}

func (e *ShareCapExceededError) Error() string {
	return fmt.Sprintf("You already own %d shares of %s", e.Max, e.Code)
}

// IsShareCapExceeded reports whether err wraps a ShareCapExceededError.
func IsShareCapExceeded(err error) bool {
	var capErr *ShareCapExceededError
	return errors.As(err, &capErr)
}
