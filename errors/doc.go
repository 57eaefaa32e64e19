// Package errors provides classified error handling for statestore.
//
// # Overview
//
// Errors are classified into three handling categories:
//   - Transient: temporary conditions (database busy, storage unavailable)
//     that callers may retry
//   - Invalid: bad input or state (missing key) that retrying will not fix
//   - Fatal: unrecoverable conditions (corrupted data, broken configuration)
//
// # Usage
//
// Wrap errors at component boundaries with the classification helpers:
//
//	if err := db.Ping(); err != nil {
//	    return errors.WrapTransient(err, "kvstore", "Init", "ping database")
//	}
//
// Callers branch on classification rather than concrete error values:
//
//	if errors.IsTransient(err) {
//	    // retry with backoff
//	}
//
// All wrapped errors follow the "component.method: action failed: %w" format
// and remain compatible with the standard library's errors.Is / errors.As.
package errors
