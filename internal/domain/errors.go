package domain

import "errors"

var (
	// ErrDataUnavailable is returned when the market data gateway cannot
	// provide a price or history. Callers skip the instrument.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientCash refuses a buy that costs more than the ledger's cash
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrInsufficientShares refuses a sell of more shares than are held
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPersistence wraps ledger storage failures
	ErrPersistence = errors.New("ledger persistence failure")

	ErrLedgerNotFound    = errors.New("ledger not found")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrResetNotConfirmed = errors.New("reset requires explicit confirmation")
)
