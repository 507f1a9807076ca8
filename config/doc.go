// Package config provides a function registry and human-readable pipeline
// definitions.
//
// Register steps, hooks and error handlers by name, then define pipelines in
// YAML (or structs) that reference those names:
//
//	pipelines:
//	  lookup:
//	    steps:
//	      - name: http.fetch
//	        as: fetch-user
//	        timeout: 5s
//	      - json.parse
//	    sync_hooks: [log]
//	    async_hooks: [record]
//	    error_handler: report
//	    options:
//	      url: https://example.com/users/1
//
// Build pipelines with BuildPipeline or BuildRegistry. Options declared in the
// file become the pipeline's defaults; options passed to Execute override them.
//
// LoadSettings reads the runtime settings of the runpipe command from a YAML
// file, a .env file and RUNPIPE_* environment variables.
package config
