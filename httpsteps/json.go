package httpsteps

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dcshock/hookpipe/pipeline"
)

// ParseJSON returns a step that unmarshals the input from JSON into a value.
// Input must be []byte or string (response body). Output is the decoded value (e.g. map[string]interface{} for objects).
func ParseJSON() pipeline.StepFunc {
	return func(_ context.Context, input interface{}, _ pipeline.Options) pipeline.Result {
		raw, err := rawJSON("parsejson", input)
		if err != nil {
			return pipeline.Err(err)
		}
		var out interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return pipeline.Err(fmt.Errorf("parsejson: %w", err))
		}
		return pipeline.Ok(out)
	}
}

// ParseJSONTo returns a step that unmarshals the input from JSON into a value of type T.
// Input must be []byte or string. Output is *T.
func ParseJSONTo[T any]() pipeline.StepFunc {
	return func(_ context.Context, input interface{}, _ pipeline.Options) pipeline.Result {
		raw, err := rawJSON("parsejsonto", input)
		if err != nil {
			return pipeline.Err(err)
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return pipeline.Err(fmt.Errorf("parsejsonto: %w", err))
		}
		return pipeline.Ok(&out)
	}
}

func rawJSON(op string, input interface{}) ([]byte, error) {
	switch v := input.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%s: input must be []byte or string, got %T", op, input)
	}
}
