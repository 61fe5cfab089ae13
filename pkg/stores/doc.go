// Package stores persists run history. The SQLite store keeps one row per
// run and one per cell outcome, migrated from embedded SQL files. History
// is advisory: a store failure is logged and never changes the run's exit
// code.
package stores
