// Package host models the two lifecycle signals a host application provides
// to its storage services.
//
//   - AfterWindowOpen: a single-fire signal meaning it is safe to begin
//     background initialization work that should not compete with startup.
//   - OnWillShutdown: a join barrier; work registered here (such as flushing
//     storage) completes before Shutdown returns, so the host never exits
//     with unflushed state.
//
// The package is deliberately free of any windowing or process concepts
// beyond these two signals; the real host wires them to whatever its own
// startup and shutdown phases look like.
package host
