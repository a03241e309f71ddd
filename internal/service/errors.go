package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPermitted is returned when the resolver denies a capability.
	// Callers surface it as a generic permission error without revealing
	// which rule produced the denial.
	ErrNotPermitted = errors.New("not permitted")

	// ErrInvariant marks a rejected mutation that would break a singleton
	// or retention invariant. The write is refused before it happens; the
	// caller can recover by choosing a different action.
	ErrInvariant = errors.New("invariant violation")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrLastEmail rejects deleting a principal's only email. Phones and
// categories have no such rule and may be emptied.
var ErrLastEmail = fmt.Errorf("%w: a user must retain at least one email", ErrInvariant)
