package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEmail_Normalized(t *testing.T) {
	e := Email{
		Subject: "  URGENT:\tverify   your account ",
		Body:    "Click\n\nhere\r\n now",
		Sender:  " alerts@bank.example ",
	}
	got := e.Normalized()
	if got.Subject != "URGENT: verify your account" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.Body != "Click here now" {
		t.Errorf("Body = %q", got.Body)
	}
	if got.Sender != "alerts@bank.example" {
		t.Errorf("Sender = %q", got.Sender)
	}
}

func TestEmail_NormalizedTruncatesBody(t *testing.T) {
	e := Email{Body: strings.Repeat("é", MaxEmailBodyRunes+50)}
	got := e.Normalized()
	if n := utf8.RuneCountInString(got.Body); n != MaxEmailBodyRunes {
		t.Fatalf("body runes = %d, want %d", n, MaxEmailBodyRunes)
	}
}

func TestEmail_Validate(t *testing.T) {
	if err := (Email{Sender: "a@b.c"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Email{Subject: " ", Body: "\n"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
