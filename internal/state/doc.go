// Package state holds the client state shared by the controller, the
// background poller and the presentation layer.
//
// Store is a mutex-guarded snapshot. Writers are the controller's intent
// goroutines and the poller; readers are the TUI tick and the CLI. Every
// check-and-set (begin upload, acquire an action slot, finish a reload) runs
// inside one critical section, so two intents can never both believe they
// won the same slot.
//
// # Reload generations
//
// BeginLoad hands out a monotonically increasing generation. CompleteLoad
// and FailLoad apply their result only when their generation is still the
// newest one started; older results are dropped. The load state remains
// Loading while any reload is running, then settles on the outcome of the
// newest applied result:
//
//	gen 1 starts → Loading
//	gen 2 starts → Loading
//	gen 2 ok     → Loading (gen 1 still running), notes from gen 2
//	gen 1 fails  → Loaded, failure discarded
//
// A failed reload keeps the previous collection and records the error.
//
// # Snapshots
//
// Snapshot returns deep copies: note slices, the pending upload, the sorted
// in-flight indices, live notices and the reward amount are all cloned.
// Expired notices are filtered at read time.
package state
