package domain

import (
	"fmt"
	"strings"
)

// Verdict is the three-way outcome of content classification.
type Verdict uint8

const (
	// VerdictUnknown is the zero value and never a valid classifier result.
	VerdictUnknown Verdict = iota
	VerdictSafe
	VerdictCaution
	VerdictDanger
)

// String returns the wire spelling used by the classifier and HTTP API.
func (v Verdict) String() string {
	switch v {
	case VerdictSafe:
		return "Safe"
	case VerdictCaution:
		return "Caution"
	case VerdictDanger:
		return "Danger"
	default:
		return fmt.Sprintf("Verdict(%d)", v)
	}
}

// Color returns the display colour clients render for the verdict.
func (v Verdict) Color() string {
	switch v {
	case VerdictSafe:
		return "green"
	case VerdictCaution:
		return "orange"
	case VerdictDanger:
		return "red"
	default:
		return ""
	}
}

// Valid reports whether v is one of Safe, Caution or Danger.
func (v Verdict) Valid() bool {
	return v == VerdictSafe || v == VerdictCaution || v == VerdictDanger
}

// ParseVerdict converts a classifier status line into a Verdict.
// Matching ignores case and surrounding whitespace; anything else wraps
// ErrGateway.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return VerdictSafe, nil
	case "caution":
		return VerdictCaution, nil
	case "danger":
		return VerdictDanger, nil
	default:
		return VerdictUnknown, fmt.Errorf("%w: unrecognized verdict %q", ErrGateway, s)
	}
}

// Classification is a verdict plus the classifier's short rationale.
type Classification struct {
	Verdict   Verdict
	Rationale string
}

// Validate rejects classifications whose verdict is outside the enum.
func (c Classification) Validate() error {
	if !c.Verdict.Valid() {
		return fmt.Errorf("%w: unrecognized verdict %s", ErrGateway, c.Verdict)
	}
	return nil
}
