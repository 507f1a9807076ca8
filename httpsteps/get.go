package httpsteps

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dcshock/hookpipe/pipeline"
)

// URLOption is the option Fetch reads the URL from when its input is not a string.
const URLOption = "url"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http get %q: status %d", e.URL, e.StatusCode)
}

// Get returns a step that performs an HTTP GET to the fixed url and returns the response body as []byte.
// The run's context is used for the request (timeout and cancellation). If client is nil, http.DefaultClient is used.
func Get(client *http.Client, url string) pipeline.StepFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, _ interface{}, _ pipeline.Options) pipeline.Result {
		return get(ctx, client, url)
	}
}

// Fetch returns a step that performs an HTTP GET to the URL from the previous step's output.
// When the input is not a string, the "url" option is used instead. Returns the response
// body as []byte. If client is nil, http.DefaultClient is used.
func Fetch(client *http.Client) pipeline.StepFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, input interface{}, opts pipeline.Options) pipeline.Result {
		url, ok := input.(string)
		if !ok {
			url = opts.String(URLOption, "")
		}
		if url == "" {
			return pipeline.Err(fmt.Errorf("http fetch: input must be URL string or %q option set, got %T", URLOption, input))
		}
		return get(ctx, client, url)
	}
}

func get(ctx context.Context, client *http.Client, url string) pipeline.Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pipeline.Err(fmt.Errorf("http get: new request: %w", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return pipeline.Err(fmt.Errorf("http get %q: %w", url, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pipeline.Err(&StatusError{URL: url, StatusCode: resp.StatusCode})
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.Err(fmt.Errorf("http get %q: read body: %w", url, err))
	}
	return pipeline.Ok(body)
}
