/*
Package persona classifies users into behavioral segments with live
reassignment.

Every ingested event first updates the user's profile: cumulative counters,
device and browser histograms, and the session record. A session closes and
is archived when the gap between consecutive events exceeds 30 minutes; the
next event opens a new one. Session boundaries follow event timestamps, so
replaying a recorded stream reproduces the same profile.

After the profile refresh, every persona definition is re-evaluated. A
persona matches when all of its rules hold; each rule reads one named
metric (page views, session duration, clicks, conversions, session count,
device type, mobile-session ratio, funnel-completion flag) at its declared
timeframe (current session or lifetime) and applies one comparator from the
closed operator set. Newly matched personas are added to the profile's
membership with a confidence score; personas no longer matched are removed
from both the profile and the segment. No hysteresis is applied: membership
may flap, by design.

Confidence is 0-100, averaged across the persona's rules, proportional to
how far each metric exceeds its threshold (doubling a greater-than
threshold scores 100 for that rule). It is not a probability.

Segment aggregates (active users within a 24-hour recency window, average
session duration, conversion rate) are recomputed from current membership
after every ingest and served as snapshot copies.

The funnel-completion metric crosses the engine boundary through a
CompletionLookup function keyed by user id; the persona engine never holds
references into funnel state.
*/
package persona
