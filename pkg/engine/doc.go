// Package engine contains the orchestration core: the action and stage
// model, classified errors, the sequential matrix loop and the reporter.
// Artifact generation, policy evaluation and tool execution live behind
// narrow interfaces so the loop can be exercised without touching the
// filesystem or spawning processes.
package engine
