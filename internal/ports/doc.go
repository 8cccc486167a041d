// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world: they define what the reconciliation engine needs from storage
// backends without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [RecordStore]: durable or volatile order persistence with
//     merge-on-write semantics and an explicit open/close lifecycle
//   - [Mirror]: optional best-effort replicated copy of the dataset
//   - [Logger]: structured logging abstraction (alias of pkg/log)
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// backends (sqlite, in-memory, redis). This keeps application logic testable
// with small fakes and makes the backend precedence policy explicit: the
// orchestrator iterates an ordered list of RecordStore implementations
// instead of scattering backend-specific fallback logic.
package ports
