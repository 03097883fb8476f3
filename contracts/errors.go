package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by what went wrong. Each kind is itself an
// error so callers can write errors.Is(err, contracts.NotFound).
type ErrorKind int

const (
	Network ErrorKind = iota + 1
	Parse
	ArchiveFormat
	NotFound
	Encoding
	Corrupt
	Filesystem
)

func (this ErrorKind) Error() string { return this.String() }

func (this ErrorKind) String() string {
	switch this {
	case Network:
		return "network"
	case Parse:
		return "parse"
	case ArchiveFormat:
		return "archive format"
	case NotFound:
		return "not found"
	case Encoding:
		return "encoding"
	case Corrupt:
		return "corrupt"
	case Filesystem:
		return "filesystem"
	default:
		return fmt.Sprintf("kind(%d)", int(this))
	}
}

// Error carries the kind of a failure and the pipeline stage that produced it.
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func NewError(kind ErrorKind, stage string, err error) error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func Errorf(kind ErrorKind, stage, format string, args ...interface{}) error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func (this *Error) Error() string {
	if this.Err == nil {
		return fmt.Sprintf("%s: %s error", this.Stage, this.Kind)
	}
	return fmt.Sprintf("%s: %s error: %s", this.Stage, this.Kind, this.Err)
}

func (this *Error) Unwrap() error { return this.Err }

func (this *Error) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == this.Kind
}

// Classify wraps err with kind and stage unless it already carries a kind.
func Classify(kind ErrorKind, stage string, err error) error {
	if err == nil || KindOf(err) != 0 {
		return err
	}
	return NewError(kind, stage, err)
}

// KindOf reports the kind of the outermost *Error in the chain, or zero.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return 0
}
