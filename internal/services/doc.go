// Package services defines shared utilities consumed by the pipeline runner and
// the external service adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so every adapter failure
//     carries one taxonomy label (transport, remote, malformed output, no match,
//     ledger) that the runner and the history store can report.
//
// Adapters should return errors built with Wrap rather than logging and
// swallowing them; the runner owns the decision to halt.
package services
