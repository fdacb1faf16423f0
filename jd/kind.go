package jd

import (
	"fmt"
	"strings"
)

// Kind selects the bias that a Model maximizes.
type Kind int

const (
	// Evoked maximizes trial-averaged power relative to total power.
	Evoked Kind = iota + 1
	// Difference maximizes the power of the difference between the averages
	// of two conditions relative to total power.
	Difference
)

func (k Kind) String() string {
	switch k {
	case Evoked:
		return "evoked"
	case Difference:
		return "difference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k == Evoked || k == Difference
}

// ParseKind maps "evoked" or "difference" (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evoked":
		return Evoked, nil
	case "difference":
		return Difference, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}
