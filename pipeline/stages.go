// Package pipeline: standard steps for common pipeline patterns.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ConvertFunc converts value of type A to type B. Used by Transform and MapSlice.
type ConvertFunc[A, B any] func(ctx context.Context, a A) (B, error)

// Lift adapts a conventional (value, error) function into a StepFunc: a nil
// error yields Ok, anything else Err.
func Lift(fn func(ctx context.Context, input interface{}) (interface{}, error)) StepFunc {
	return func(ctx context.Context, input interface{}, _ Options) Result {
		out, err := fn(ctx, input)
		if err != nil {
			return Err(err)
		}
		return Ok(out)
	}
}

// Transform returns a step that converts the previous step's output (type A)
// to type B. Input of another type fails the pipeline.
func Transform[A, B any](convert ConvertFunc[A, B]) StepFunc {
	return func(ctx context.Context, input interface{}, _ Options) Result {
		a, ok := input.(A)
		if !ok {
			var zero A
			return Err(fmt.Errorf("transform: expected %T, got %T", zero, input))
		}
		b, err := convert(ctx, a)
		if err != nil {
			return Err(err)
		}
		return Ok(b)
	}
}

// Identity returns a step that passes the input through unchanged.
func Identity() StepFunc {
	return func(_ context.Context, input interface{}, _ Options) Result {
		return Ok(input)
	}
}

// Tap returns a step that calls fn(ctx, input) then passes input through
// unchanged. Use for side effects that cannot fail.
func Tap(fn func(context.Context, interface{})) StepFunc {
	return func(ctx context.Context, input interface{}, _ Options) Result {
		fn(ctx, input)
		return Ok(input)
	}
}

// Validate returns a step that passes input through only if predicate(v) is
// true. Otherwise it fails with errMsg, or with the generic Invalid marker when
// errMsg is empty. Input must be of type T.
func Validate[T any](predicate func(T) bool, errMsg string) StepFunc {
	return func(_ context.Context, input interface{}, _ Options) Result {
		v, ok := input.(T)
		if !ok {
			var zero T
			return Err(fmt.Errorf("validate: expected %T, got %T", zero, input))
		}
		if !predicate(v) {
			if errMsg == "" {
				return Invalid()
			}
			return Err(errors.New(errMsg))
		}
		return Ok(input)
	}
}

// Constant returns a step that ignores input and always outputs value.
func Constant(value interface{}) StepFunc {
	return func(_ context.Context, _ interface{}, _ Options) Result {
		return Ok(value)
	}
}

// WithTimeout runs inner with a context deadline of now+timeout. The engine
// itself never imposes deadlines; this is opt-in per step and only effective if
// inner honors its context.
func WithTimeout(inner StepFunc, timeout time.Duration) StepFunc {
	return func(ctx context.Context, input interface{}, opts Options) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return inner(ctx, input, opts)
	}
}

// MapSlice returns a step that converts []T to []U using convert for each
// element. The first conversion error fails the step.
func MapSlice[T, U any](convert ConvertFunc[T, U]) StepFunc {
	return func(ctx context.Context, input interface{}, _ Options) Result {
		slice, ok := input.([]T)
		if !ok {
			var zero []T
			return Err(fmt.Errorf("mapslice: expected %T, got %T", zero, input))
		}
		out := make([]U, 0, len(slice))
		for i, v := range slice {
			u, err := convert(ctx, v)
			if err != nil {
				return Err(fmt.Errorf("mapslice[%d]: %w", i, err))
			}
			out = append(out, u)
		}
		return Ok(out)
	}
}

// FilterSlice returns a step that keeps only elements of []T for which keep(v)
// is true.
func FilterSlice[T any](keep func(T) bool) StepFunc {
	return func(_ context.Context, input interface{}, _ Options) Result {
		slice, ok := input.([]T)
		if !ok {
			var zero []T
			return Err(fmt.Errorf("filterslice: expected %T, got %T", zero, input))
		}
		out := make([]T, 0, len(slice))
		for _, v := range slice {
			if keep(v) {
				out = append(out, v)
			}
		}
		return Ok(out)
	}
}
