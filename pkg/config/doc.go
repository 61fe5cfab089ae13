// Package config implements the configuration store and merger of the
// cloudweave engine.
//
// A configuration document maps environment names to their deployment
// configuration: a common variable layer, remote-state backend settings and
// a set of cloud providers, each with cloud-level settings and named
// modules. Documents are YAML (JSON parses too); loading is all-or-nothing
// and validated eagerly, first against a CUE schema and then against struct
// validation tags, so malformed configuration is caught before any side
// effect.
//
// The merger flattens the three layers into the effective variable set of
// one (cloud, module) cell with module > cloud > common precedence, strips
// the structural `enabled` and `modules` keys, and in automated-pipeline
// context strips the common layer's credential profile. Pipeline detection
// is snapshotted once per run into a RunContext value.
package config
