// Package ports defines the interfaces (ports) that connect the transfer
// engine to infrastructure adapters.
//
// Ports are the boundaries between the engine and the outside world. They
// define what the engine needs from external collaborators without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Logger]: Structured logging abstraction
//   - [HeaderGenerator]: Builds the request head sent in front of every batch
//
// # Usage
//
// The engine (internal/pipe) depends only on these interfaces. Adapters
// (internal/adapters, internal/header) implement them with concrete
// libraries (zerolog, vendor header layouts, etc.).
package ports
