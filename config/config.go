package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PipelineConfig is a single pipeline definition (e.g. one entry of a YAML file).
// Names refer to functions in a Registry.
type PipelineConfig struct {
	Name         string                 `yaml:"name"`
	Steps        []StepRef              `yaml:"steps" validate:"dive"`
	SyncHooks    []string               `yaml:"sync_hooks" validate:"dive,required"`
	AsyncHooks   []string               `yaml:"async_hooks" validate:"dive,required"`
	ErrorHandler string                 `yaml:"error_handler"`
	Options      map[string]interface{} `yaml:"options"`
}

// StepRef is a single step entry: either a plain name or name + modifiers.
// In YAML, a step can be written as:
//   - add
//   - name: http.fetch
//     as: fetch-user
//     timeout: 5s
type StepRef struct {
	// Name of the registered step function.
	Name string `yaml:"name" validate:"required"`

	// As overrides the step name recorded in State.ExecutedSteps and logs.
	As string `yaml:"as"`

	// Timeout wraps the step with pipeline.WithTimeout when positive.
	Timeout Duration `yaml:"timeout" validate:"gte=0"`
}

// StepName returns the name the built step is known by.
func (s StepRef) StepName() string {
	if s.As != "" {
		return s.As
	}
	return s.Name
}

// UnmarshalYAML allows a step to be a string (step name only) or a struct.
func (s *StepRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StepRef
	return value.Decode((*raw)(s))
}

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "60s", "5m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// File is the root structure of a definitions file. The top-level key is
// "pipelines"; each value is a pipeline. An entry without a name takes its key.
type File struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines" validate:"required,min=1,dive"`
}

// ParsePipelineConfig parses and validates YAML bytes holding a single pipeline.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseFile parses and validates YAML bytes holding a "pipelines" map.
// Example YAML:
//
//	pipelines:
//	  score:
//	    steps: [add, mul]
//	    sync_hooks: [log]
//	  lookup:
//	    steps:
//	      - name: http.fetch
//	        timeout: 5s
//	      - json.parse
//	    async_hooks: [record]
//	    error_handler: report
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses the definitions file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks a definition struct against its validate tags and returns
// an error listing every failing field.
func Validate(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(e.Namespace()), describe(e)))
	}
	return fmt.Errorf("config: invalid definition: %s", strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + e.Param() + " entries"
	case "gte":
		return "must not be negative"
	default:
		return "is invalid"
	}
}
