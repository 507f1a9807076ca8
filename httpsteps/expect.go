package httpsteps

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dcshock/hookpipe/pipeline"
)

// Expect returns a step that runs the predicate on the input. If the predicate returns an error,
// the step fails the run with that error. Otherwise the input is passed through unchanged.
// Use after ParseJSON to verify the decoded result (e.g. check status field, required keys).
func Expect(predicate func(interface{}) error) pipeline.StepFunc {
	if predicate == nil {
		panic("httpsteps.Expect: predicate must not be nil")
	}
	return func(_ context.Context, input interface{}, _ pipeline.Options) pipeline.Result {
		if err := predicate(input); err != nil {
			return pipeline.Err(fmt.Errorf("expect: %w", err))
		}
		return pipeline.Ok(input)
	}
}

// ExpectEqual returns a step that checks the input equals expected using reflect.DeepEqual.
// Works for primitives, slices, and maps (e.g. parsed JSON).
func ExpectEqual(expected interface{}) pipeline.StepFunc {
	return Expect(func(v interface{}) error {
		if !reflect.DeepEqual(v, expected) {
			return fmt.Errorf("got %v, want %v", v, expected)
		}
		return nil
	})
}
