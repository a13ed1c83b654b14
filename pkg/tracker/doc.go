// Package tracker wires the instrumentation pipeline together into a single
// explicit context object.
//
// A Tracker owns one identity store, one capture collector, one delivery
// queue and, when enabled, one funnel engine and one persona engine. It runs
// a single loop that consumes raw signals in arrival order and fans each
// captured event out to the three consumers synchronously, so processing
// order is exactly arrival order and replaying the same signal sequence
// yields the same analytical results.
//
// Usage:
//
//	cfg, err := config.Load("standlog.yaml")
//	if err != nil {
//		return err
//	}
//	t, err := tracker.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer t.Close(context.Background())
//
//	src := signal.NewChanSource(64)
//	t.Attach(src)
//	src.Emit(signal.Signal{Kind: signal.KindPageLoad, Page: &signal.PageInfo{URL: "/"}})
//
// Construction is all-or-nothing: an invalid configuration returns an error
// and no tracker, so a half-built pipeline can never process events. Close
// performs a final teardown flush without awaiting the network send, which
// matches a hosting context that may disappear at any moment.
package tracker
