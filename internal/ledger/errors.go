package ledger

import (
	"errors"
	"fmt"

	"finledger/internal/core"
)

var (
	ErrInvalidAmount        = core.ErrInvalidAmount
	ErrInvalidPercentage    = core.ErrInvalidPercentage
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInvalidProject       = errors.New("invalid project")
	ErrInvalidPartner       = errors.New("invalid partner")
	ErrUseWithdrawal        = errors.New("withdrawals are recorded through AddWithdrawal")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
	ErrProjectNotFound      = errors.New("project not found")
	ErrPartnerNotFound      = errors.New("partner not found")
	ErrInvariantViolation   = errors.New("ledger invariant violated")
)

// InvariantError reports cached totals that diverge from a replay of the log.
type InvariantError struct {
	Cached   Totals
	Replayed Totals
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: cached balance=%s income=%s expenses=%s invested=%s, replayed balance=%s income=%s expenses=%s invested=%s",
		ErrInvariantViolation,
		e.Cached.Balance, e.Cached.Income, e.Cached.Expenses, e.Cached.Invested,
		e.Replayed.Balance, e.Replayed.Income, e.Replayed.Expenses, e.Replayed.Invested)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
