// Package httpsteps provides pipeline steps for HTTP requests and response handling.
//
// Use Get or Fetch to perform a GET request, ParseJSON to unmarshal the response body,
// and Expect to verify the parsed result and fail the run if it is not as expected.
//
// Example pipeline: GET url → ParseJSON → Expect(predicate)
//
//	p := &pipeline.Pipeline{
//	    Name: "check-api",
//	    Steps: []pipeline.Step{
//	        pipeline.NewStep("get", httpsteps.Get(nil, "https://api.example.com/status")),
//	        pipeline.NewStep("parse", httpsteps.ParseJSON()),
//	        pipeline.NewStep("expect", httpsteps.Expect(func(v interface{}) error {
//	            m, _ := v.(map[string]interface{})
//	            if m["status"] != "ok" { return fmt.Errorf("unexpected status") }
//	            return nil
//	        })),
//	    },
//	}
package httpsteps
