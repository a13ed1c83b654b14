/*
Package types defines the core data structures used throughout standlog.

This package contains the domain model shared by every engine: normalized
interaction events, the identity triple, collector wire messages, funnel
definitions and per-session funnel state, persona definitions and user
profiles. All other packages depend on types; types depends on nothing but
the standard library and the YAML codec (for Duration).

# Core Types

Events:
  - Event: one normalized interaction record (immutable once created)
  - EventType: pageview, click, scroll, form_submit, custom, visibility_change
  - Payload: kind-specific body, one concrete type per EventType

Identity:
  - Identity: visitor id (durable), anonymous id (tab-scoped), session id
  - SessionMetadata: environment reported at session creation

Collector wire format:
  - SessionRequest / SessionResponse: POST /session
  - EventsRequest / EventsResponse: POST /events

Funnels:
  - Funnel, FunnelStep, FunnelOptions: the definition (fixed step order)
  - FunnelState: one session's position, -1 until entered
  - FunnelStats, StepStats, TransitionTiming: read-only aggregates

Personas:
  - Persona, PersonaRule: conjunction of metric comparisons
  - Operator: closed comparator set (gt, lt, gte, lte, eq, neq, between, in)
  - UserProfile, SessionRecord: per-user cumulative metrics and sessions
  - Membership, SegmentStats: live segment membership and aggregates

# Design Principles

Types are plain data:
  - Serializable (JSON for the wire, YAML for definitions)
  - No behavior beyond trivial accessors
  - Engines own all mutation; consumers receive copies

Event ordering is creation order. Batching preserves it; nothing in this
package or its consumers reorders events within a batch.

# See Also

  - pkg/capture for how raw signals become Events
  - pkg/funnel and pkg/persona for the engines that consume them
  - pkg/delivery for the collector wire protocol
*/
package types
