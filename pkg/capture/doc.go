/*
Package capture normalizes raw interaction signals into uniform events.

One capture function exists per signal kind (pageview, click, scroll,
form_submit, custom, visibility_change). Each returns a fully populated
Event tagged with the current identity from pkg/identity. Capture does not
filter: a click on an untracked region still yields a click event; funnel
and persona matching decide relevance downstream.

Element descriptors are derived deterministically: "#id" when the element
has an id, otherwise "tag.class1.class2". Form field values are truncated
to a fixed length, and any field typed as a password is replaced with a
constant redaction marker before the event becomes visible to any consumer.
Redaction never happens after the fact.

As a side effect, capture maintains per-session interaction counters that
the persona engine reads.
*/
package capture
