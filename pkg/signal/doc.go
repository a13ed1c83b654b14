/*
Package signal defines the boundary between the host environment and the
tracking core.

The core never registers DOM listeners or touches a browsing context
directly. Instead, a Source implemented by a thin host adapter delivers raw
Signal values to a single registered handler, in the order the underlying
interactions occurred. Everything downstream (normalization, batching, step
matching, classification) consumes only these normalized signals.

Two implementations ship with the core:

  - ChanSource: a programmatic source backed by a buffered channel, for
    embedders that observe the host themselves
  - ReplaySource: reads newline-delimited JSON signals from a file or
    stream, for the CLI and for integration tests

# Usage

	src := signal.NewChanSource(64)
	tracker.Attach(src)

	src.Emit(signal.Signal{
		Kind: signal.KindClick,
		Page: signal.PageInfo{URL: "https://example.com/pricing"},
		Click: &signal.ClickInfo{
			X: 120, Y: 840,
			Element: signal.ElementInfo{ID: "buy-now", Tag: "button"},
		},
	})
*/
package signal
