// Package core runs reconciliation passes for operators.
//
// It sits between the transports (the HTTP server and the CLI) and the
// domain packages: it loads sheets, opens a library session per pass,
// drives the reconcile engine and keeps run history and mapping presets.
//
// # Passes
//
// [Service.Apply] validates the plan, takes a slot from the [PassLimiter],
// opens a [host.Session], runs the pass and closes the session before the
// run is recorded. Configuration errors return before the library is
// touched. [Service.DryRun] indexes the library once and reports the writes
// a pass would make.
//
// # Persistence
//
// A [Store] holds runs and presets. [PGStore] keeps them in Postgres next to
// the media tables; [MemoryStore] is used when no database is configured.
// Old runs are removed by [Service.StartPruneScheduler].
//
// # Error Handling
//
// Errors are mapped to operator messages with [MapError]. Codes are listed
// in error_messages.go.
package core
