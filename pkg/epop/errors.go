package epop

import (
	"errors"
	"fmt"
)

// LoadErrorKind classifies why a document's annotations were rejected.
type LoadErrorKind string

const (
	MalformedSpan           LoadErrorKind = "malformed_span"
	UnknownTypeTag          LoadErrorKind = "unknown_type_tag"
	DanglingReference       LoadErrorKind = "dangling_reference"
	CyclicRelationReference LoadErrorKind = "cyclic_relation_reference"
)

// LoadError is fatal for the affected document only; an evaluation run
// skips the document and continues.
type LoadError struct {
	Kind       LoadErrorKind
	DocumentID string
	Detail     string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("document %s: %s: %s", e.DocumentID, e.Kind, e.Detail)
}

// NewLoadError builds a LoadError with a formatted detail message.
func NewLoadError(kind LoadErrorKind, docID, format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: kind, DocumentID: docID, Detail: fmt.Sprintf(format, args...)}
}

// AsLoadError unwraps err into a LoadError if one is in its chain.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
