// Package errs provides the error type used throughout the codebase.
// Errors carry the operation that produced them and a kind that callers
// can test for, following the conventions of github.com/gilcrest/diygoapi.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Op describes an operation, usually as the package and method,
// such as "catalogue.Client.GetPackage".
type Op string

// Parameter represents the parameter related to the error.
type Parameter string

// Kind defines the kind of error this is.
type Kind uint8

const (
	Other           Kind = iota // Unclassified error
	Invalid                     // Invalid operation for this type of item
	IO                          // External I/O error such as network failure
	Exist                       // Item already exists
	NotExist                    // Item does not exist
	Internal                    // Internal error or inconsistency
	Validation                  // Input validation error
	InvalidRequest              // Invalid request
	Unauthenticated             // Unauthenticated request
	Unauthorized                // Unauthorized request
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid operation"
	case IO:
		return "I/O error"
	case Exist:
		return "item already exists"
	case NotExist:
		return "item does not exist"
	case Internal:
		return "internal error"
	case Validation:
		return "input validation error"
	case InvalidRequest:
		return "invalid request"
	case Unauthenticated:
		return "unauthenticated request"
	case Unauthorized:
		return "unauthorized request"
	}

	return "unknown error kind"
}

// Error is the type that implements the error interface.
// An Error value may leave some fields unset.
type Error struct {
	Op    Op
	Kind  Kind
	Param Parameter
	Err   error
}

func (e *Error) Error() string {
	b := &strings.Builder{}

	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Param != "" {
		pad(b, ": ")
		b.WriteString("parameter ")
		b.WriteString(string(e.Param))
	}
	if e.Err != nil {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return "no error"
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func pad(b *strings.Builder, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

// E builds an error value from its arguments. The type of each argument
// determines its meaning: Op, Kind, Parameter, error, or string (treated
// as an error message). There must be at least one argument.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return errors.New("errs.E called with no arguments")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case Parameter:
			e.Param = a
		case *Error:
			e.Err = a
		case error:
			e.Err = a
		case string:
			e.Err = errors.New(a)
		default:
			e.Err = fmt.Errorf("unknown type %T, value %v in error call", a, a)
		}
	}

	return e
}

// Str returns an error from a plain string.
func Str(s string) error {
	return errors.New(s)
}

// KindIs reports whether err, or any error it wraps, carries the given
// kind. Wrapping errors of kind Other are skipped so that the innermost
// classified kind wins.
func KindIs(kind Kind, err error) bool {
	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			var inner *Error
			if !errors.As(err, &inner) {
				return false
			}
			e = inner
		}
		if e.Kind != Other {
			return e.Kind == kind
		}
		err = e.Err
	}

	return false
}
