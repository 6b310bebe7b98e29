package domain

import "errors"

var (
	// ErrInvalidParameter reports a filter constructed with an out-of-range
	// capacity or error rate. Fatal at startup.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrCorpusRead reports a corpus source that could not be read or parsed.
	// Fatal at startup; a failed reload keeps the previous filter.
	ErrCorpusRead = errors.New("corpus read failure")

	// ErrNotLoaded is returned by membership checks issued before the first
	// complete corpus load has been published.
	ErrNotLoaded = errors.New("membership filter not loaded")

	// ErrInvalidInput reports a request payload the service cannot act on.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGateway reports a classification collaborator that failed or
	// returned a verdict outside the Safe/Caution/Danger set.
	ErrGateway = errors.New("classification gateway error")

	// ErrClassifierDisabled is returned by email checks when no classifier
	// is configured.
	ErrClassifierDisabled = errors.New("classifier disabled")
)
