// Package monitor runs the sensing-publish-render control loop.
//
// One goroutine owns all monitor state. Each Tick is re-entrant and
// non-blocking except for the reconnect wait: when the broker link is
// down the loop deliberately blocks inside EnsureConnected, driving
// the display blink while it waits. The device prioritizes eventually
// reconnecting over responsiveness; there is nothing useful to do
// without the broker anyway.
//
// The poll timer is best-effort, not exact. After a cycle fires the
// timer restarts from "now" rather than the scheduled instant, so a
// stalled loop (slow sensor conversion, long reconnect) delays the
// next cycle by at most its own cost instead of bursting catch-up
// cycles.
package monitor
