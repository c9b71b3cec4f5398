package domain

import (
	"errors"
	"fmt"

	"github.com/fd1az/price-getter/internal/apperror"
)

// PairNotFoundError means the router holds no pool for First/Second.
// First is always the bridge token.
type PairNotFoundError struct {
	First  TokenIdentifier
	Second TokenIdentifier
}

func (e *PairNotFoundError) Error() string {
	return fmt.Sprintf("no pair for %s/%s", e.First, e.Second)
}

// NewPairNotFound returns a PAIR_NOT_FOUND error carrying the token pair.
func NewPairNotFound(first, second TokenIdentifier) error {
	cause := &PairNotFoundError{First: first, Second: second}
	return apperror.New(apperror.CodePairNotFound,
		apperror.WithContext(cause.Error()),
		apperror.WithCause(cause))
}

// AsPairNotFound extracts the token pair from err.
func AsPairNotFound(err error) (*PairNotFoundError, bool) {
	var pnf *PairNotFoundError
	if errors.As(err, &pnf) {
		return pnf, true
	}
	return nil, false
}

// IsPairNotFound reports whether err means a missing pool.
func IsPairNotFound(err error) bool {
	return apperror.HasCode(err, apperror.CodePairNotFound)
}
