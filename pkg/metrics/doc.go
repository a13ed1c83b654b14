/*
Package metrics provides Prometheus instrumentation and health reporting.

The tracking core increments counters as it works (signals captured, batches
flushed and dropped, funnel advances, persona reassignments); the dev
collector exposes them on /metrics together with its own request counters.
The client core itself never serves HTTP.

Health is a process-wide component registry: components report healthy or
unhealthy with a message, and HealthHandler serves the aggregate as JSON on
/healthz with a 503 when any component is unhealthy.

# Metrics Catalog

Capture:
  - standlog_signals_captured_total{type}

Delivery:
  - standlog_batches_flushed_total{reason}
  - standlog_batches_dropped_total
  - standlog_batch_size_events
  - standlog_sessions_created_total

Engines:
  - standlog_funnel_steps_total{funnel}
  - standlog_funnel_completions_total{funnel}
  - standlog_persona_assignments_total{persona,change}

Collector:
  - standlog_collector_requests_total{endpoint,status}
  - standlog_collector_events_received_total
*/
package metrics
