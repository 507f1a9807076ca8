package httpsteps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dcshock/hookpipe/pipeline"
)

func statusCheck(v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected map")
	}
	if s, _ := m["status"].(string); s != "ok" {
		return fmt.Errorf("unexpected status: %v", m["status"])
	}
	return nil
}

func checkPipeline(url string, hook pipeline.HookFunc) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: "http-check",
		Steps: []pipeline.Step{
			pipeline.NewStep("get", Get(nil, url)),
			pipeline.NewStep("parse", ParseJSON()),
			pipeline.NewStep("expect", Expect(statusCheck)),
		},
		SyncHooks: []pipeline.Hook{pipeline.NewHook("count", hook)},
	}
}

// TestPipeline_GET_ParseJSON_Expect runs a full pipeline: GET -> ParseJSON -> Expect (pass).
func TestPipeline_GET_ParseJSON_Expect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":1}`))
	}))
	defer ts.Close()

	var hooked int32
	p := checkPipeline(ts.URL, func(context.Context, *pipeline.State, pipeline.Options) error {
		atomic.AddInt32(&hooked, 1)
		return nil
	})
	res, err := p.Execute(context.Background(), nil, pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := res.Value().(map[string]interface{})
	if !res.IsOk() || !ok || m["status"] != "ok" || m["version"].(float64) != 1 {
		t.Errorf("unexpected result: %v", res)
	}
	if hooked != 1 {
		t.Errorf("hook ran %d times", hooked)
	}
}

// TestPipeline_GET_ParseJSON_Expect_Fail verifies the run fails when Expect fails and hooks still see it.
func TestPipeline_GET_ParseJSON_Expect_Fail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error"}`))
	}))
	defer ts.Close()

	var executed []string
	p := checkPipeline(ts.URL, func(_ context.Context, st *pipeline.State, _ pipeline.Options) error {
		executed = st.StepNames()
		return nil
	})
	res, err := p.Execute(context.Background(), nil, pipeline.Options{})
	if err != nil {
		t.Fatalf("a failing step is not an engine fault: %v", err)
	}
	if !res.IsErr() || res.Error().Error() != "expect: unexpected status: error" {
		t.Fatalf("expected Err from Expect, got %v", res)
	}
	if len(executed) != 3 {
		t.Errorf("executed: %v", executed)
	}
}
