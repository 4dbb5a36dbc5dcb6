// Package testutil provides test utilities for tally, including:
//   - data directory fixtures with sample users, projects and tasks (fixtures.go)
//   - Miniredis helpers for unit tests (miniredis.go)
//
// None of the helpers require Docker; they work with regular tests.
package testutil
