/*
Package identity manages the identifier triple every event is tagged with.

Three identifiers with three lifetimes:

  - Visitor id: survives across sessions, persisted in a durable scope
    (BoltDB on disk, or in-memory where disk is unavailable)
  - Anonymous id: scoped to one tab/execution context, never persisted
  - Session id: generated at init, replaced by the collector's canonical id
    after the first successful session-creation call

Identifiers take the form {prefix}_{wallClockMillis}_{random alnum 9}.
Uniqueness is probabilistic, not guaranteed: a collision merges unrelated
sessions, a cosmetic degradation rather than a correctness violation.

Durable storage being cleared or unavailable is recovered locally by
regenerating the visitor id ("new visitor"); it is never surfaced as an
error.

# Usage

	scope, err := identity.OpenBolt(dataDir)
	if err != nil {
		scope = identity.NewMemoryScope()
	}
	ids := identity.NewStore(scope)

	visitor := ids.EnsureVisitorID()
	session := ids.CurrentSessionID()

	// after POST /session succeeds:
	ids.AdoptServerSessionID(resp.ID)
*/
package identity
