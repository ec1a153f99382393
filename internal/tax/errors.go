package tax

import "errors"

var (
	// ErrMissingAnchorDate means a statute computation has no date to start from.
	ErrMissingAnchorDate = errors.New("missing anchor date")
	// ErrIndeterminateStatute is reported when an open tolling event keeps the
	// final statute date from being known. It is an expected state, not a failure.
	ErrIndeterminateStatute = errors.New("indeterminate statute")
	ErrMissingRuleLookup    = errors.New("missing rule lookup")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
)
