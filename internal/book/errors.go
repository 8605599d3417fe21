package book

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage marks a feed message with no level data on either side.
// It is benign: the book is untouched and ingestion continues.
var ErrEmptyMessage = errors.New("feed message carries no level data")

// UnknownKindError reports a message kind that is neither snapshot nor delta.
// The message is dropped and the book left unmodified.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown feed message kind %q", e.Kind)
}

// ParseError reports a price or quantity token that is not a valid decimal.
// Application of the current message stops at the offending pair; levels
// applied earlier in the same delta remain in effect.
type ParseError struct {
	Side  string // "bid" or "ask"
	Field string // "price" or "quantity"
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %s %q: %v", e.Side, e.Field, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
