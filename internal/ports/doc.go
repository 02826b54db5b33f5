// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [FarmClient]: The remote ledger operations the orchestrator invokes
//   - [FarmStore]: Local farm snapshot persistence used in trial mode
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// HTTP, file system and zerolog backends.
package ports
