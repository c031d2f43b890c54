// Package lifecycle owns the shared managed-service instances and gates
// callers on model provisioning. It is structured into small files by concern:
//
//   - manager.go: Manager type, per-label locking, EnsureStarted/EnsureReady/Ensure,
//     endpoint publication, status snapshots and StopAll.
//   - launcher.go: Launcher interface, subprocess launcher with free-port
//     selection and HTTP health wait, process tracking.
//   - cachedir.go: model cache directory layout and diagnostics.
//
// At most one instance exists per label within a process. The per-label lock
// is held from the start-or-reuse decision through the whole sequential
// provisioning pass, so concurrent callers can never create a duplicate
// instance or interleave model downloads against the shared one. Read-only
// snapshots (Endpoint, Status) go through a narrower lock, so they stay
// responsive while a provisioning pass is in flight.
//
// External packages should use the public methods only (NewManager,
// EnsureStarted, EnsureReady, Ensure, Endpoint, Status, StopAll). Internal
// types are subject to change.
package lifecycle
