package services

import (
	"errors"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/fx"
)

// Domain error taxonomy. All of these are recovered at the
// conversational boundary and turned into user-visible messages; none
// should crash the process.
var (
	// ErrRateUnavailable surfaces to the user as "currency not
	// supported". It is never coerced to a 1:1 default.
	ErrRateUnavailable = fx.ErrUnavailable

	// ErrNotFound and ErrAccessDenied are rendered as one merged
	// "not found or access denied" message so the existence of other
	// accounts' data never leaks.
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidOperation covers structurally nonsensical requests:
	// reversing a reversal, self-debt creation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDebtSettled is returned when settling a debt that is already
	// settled, including the loser of a concurrent double-settle or
	// of a cancel/settle race.
	ErrDebtSettled = db.ErrAlreadySettled

	// ErrValidation covers malformed input: bad currency code shape,
	// non-positive amounts, out-of-range split shares.
	ErrValidation = errors.New("invalid input")
)
