// Package domain contains the core domain entities and value objects for farmer.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only the vocabulary of the orchestrator.
//
// # Entities
//
//   - [State]: The orchestrator lifecycle phase (initial, loading, farming, ...)
//   - [Event]: A user intent or an invocation outcome
//   - [Context]: The error code and failure kind carried across states
//   - [Farm]: The user-owned ledger resource
//   - [LedgerError]: A coded failure reported by the remote ledger
package domain
