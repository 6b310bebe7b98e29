package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxEmailBodyRunes caps the body forwarded to the classifier.
const MaxEmailBodyRunes = 8000

// Email is the text payload submitted for content classification.
type Email struct {
	Subject string
	Body    string
	Sender  string
}

// Normalized returns a copy with whitespace runs collapsed to single spaces,
// surrounding whitespace trimmed, and the body truncated to
// MaxEmailBodyRunes.
func (e Email) Normalized() Email {
	out := Email{
		Subject: collapseSpace(e.Subject),
		Body:    collapseSpace(e.Body),
		Sender:  strings.TrimSpace(e.Sender),
	}
	if utf8.RuneCountInString(out.Body) > MaxEmailBodyRunes {
		out.Body = string([]rune(out.Body)[:MaxEmailBodyRunes])
	}
	return out
}

// Validate requires at least one non-empty field.
func (e Email) Validate() error {
	if strings.TrimSpace(e.Subject) == "" && strings.TrimSpace(e.Body) == "" && strings.TrimSpace(e.Sender) == "" {
		return fmt.Errorf("%w: subject, body and sender are all empty", ErrInvalidInput)
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
