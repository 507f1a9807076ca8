package pipeline

import "fmt"

type resultKind uint8

const (
	kindUnset resultKind = iota
	kindOk
	kindErr
	kindInvalid
)

// Result is what every step returns: Ok carries the next value, Err carries the
// error that halts the pipeline, and Invalid halts it without a specific error.
// The zero Result is not a valid step outcome.
type Result struct {
	kind  resultKind
	value interface{}
	err   error
}

// Ok returns a successful result; value becomes the pipeline's current value.
func Ok(value interface{}) Result { return Result{kind: kindOk, value: value} }

// Err returns a failed result carrying err. Err(nil) is a contract violation
// when returned from a step; use Invalid for a failure without a payload.
func Err(err error) Result { return Result{kind: kindErr, err: err} }

// Invalid returns the generic failure marker. The pipeline records
// ErrInvalidated as its error.
func Invalid() Result { return Result{kind: kindInvalid} }

// IsOk reports whether r is a success.
func (r Result) IsOk() bool { return r.kind == kindOk }

// IsErr reports whether r is a failure (Err or Invalid).
func (r Result) IsErr() bool { return r.kind == kindErr || r.kind == kindInvalid }

// Value returns the success value, or nil for failures.
func (r Result) Value() interface{} { return r.value }

// Error returns the failure error. Invalid results report ErrInvalidated.
func (r Result) Error() error {
	if r.kind == kindInvalid {
		return ErrInvalidated
	}
	return r.err
}

// Unwrap returns (value, err) in the usual Go shape.
func (r Result) Unwrap() (interface{}, error) {
	if r.IsOk() {
		return r.value, nil
	}
	return nil, r.Error()
}

// wellFormed reports whether r is inside the step contract.
func (r Result) wellFormed() bool {
	switch r.kind {
	case kindOk, kindInvalid:
		return true
	case kindErr:
		return r.err != nil
	default:
		return false
	}
}

func (r Result) String() string {
	switch r.kind {
	case kindOk:
		return fmt.Sprintf("Ok(%v)", r.value)
	case kindErr:
		return fmt.Sprintf("Err(%v)", r.err)
	case kindInvalid:
		return "Invalid"
	default:
		return "Result(unset)"
	}
}
