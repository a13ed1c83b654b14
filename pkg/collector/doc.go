/*
Package collector is the reference collector for local development.

It serves the two-endpoint JSON interface the tracker speaks:

	POST /session  - create or return the session for an anonymous id
	POST /events   - accept a batch of events

Session creation is idempotent on the anonymous id: repeated calls return
the same canonical session id and never create duplicates. The server
keeps only what idempotence requires (the anonymous-id to session-id map
and per-session event counts); storing or querying analytics data is
deliberately out of scope.

The router also exposes /healthz and Prometheus /metrics, and allows all
origins: real deployments embed the tracker on pages served from
elsewhere.

Run it with "standlog collector --listen :8080".
*/
package collector
