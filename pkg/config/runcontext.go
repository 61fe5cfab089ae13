package config

import "os"

// pipelineIndicators are the environment variables that signal an automated
// pipeline. Presence of any one of them (non-empty) switches credential
// handling: profile-style keys are stripped because pipelines inject
// credentials through the process environment.
var pipelineIndicators = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TF_BUILD",
	"CODEBUILD_BUILD_ID",
	"BITBUCKET_BUILD_NUMBER",
	"TEAMCITY_VERSION",
}

// RunContext is the execution-context snapshot, taken once per run. The
// merger and writer take it as a value so context-dependent behavior never
// re-reads mutable process state mid-run.
type RunContext struct {
	// Pipeline is true when the process runs under an automated pipeline.
	Pipeline bool

	// Indicator is the environment variable that triggered detection,
	// empty for local runs.
	Indicator string
}

// DetectRunContext snapshots the execution context from the process
// environment.
func DetectRunContext() RunContext {
	return detectRunContext(os.LookupEnv)
}

// detectRunContext is the injectable core of DetectRunContext.
func detectRunContext(lookup func(string) (string, bool)) RunContext {
	for _, name := range pipelineIndicators {
		if v, ok := lookup(name); ok && v != "" && v != "false" {
			return RunContext{Pipeline: true, Indicator: name}
		}
	}
	return RunContext{}
}
