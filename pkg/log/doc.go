/*
Package log provides structured logging for standlog using zerolog.

A single global logger is configured once at startup via Init, with either
human-readable console output or JSON output. Components obtain child
loggers carrying identifying fields:

	logger := log.WithComponent("delivery")
	logger.Debug().Int("batch_size", n).Msg("batch dropped")

Diagnostics that only matter in debug mode (dropped batches, transport
failures) are logged at debug level; the tracker never surfaces errors to
the hosting application.

# Usage

	log.Init(log.Config{Level: log.DebugLevel})

	logger := log.WithComponent("tracker")
	logger.Info().Msg("tracker initialized")
*/
package log
