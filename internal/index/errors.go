package index

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by edits that target a node missing from the tree.
	ErrNotFound = errors.New("node not found")

	// ErrDuplicateID is returned when an edit would give two siblings the same
	// ID (or two images in one series the same name).
	ErrDuplicateID = errors.New("duplicate sibling id")

	// ErrMissingID is returned for nodes without an identity.
	ErrMissingID = errors.New("missing id")

	// ErrNameResolutionExhausted is returned when no free series name could
	// be derived by appending the suffix.
	ErrNameResolutionExhausted = errors.New("series name resolution exhausted")

	ErrNoExpandedState = errors.New("images have no expanded state")
	ErrNoPath          = errors.New("no index path")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ParseError reports an index document that could not be read or is not a
// well formed Subject/Study/Series/Image tree.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing index %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func notFound(ref Ref) error {
	return fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func duplicate(ref Ref) error {
	return fmt.Errorf("%w: %s", ErrDuplicateID, ref)
}
