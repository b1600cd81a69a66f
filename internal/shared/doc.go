// Package shared holds helpers used across the loandash packages.
//
// The testutil subpackage provides a capturing slog handler for asserting
// on log output and loan application fixtures (records, cleaned tables and
// CSV sources) for service and transport tests.
package shared
