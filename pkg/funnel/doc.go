/*
Package funnel tracks ordered progress through multi-step conversion flows.

One state machine exists per (funnel definition x session), with states
unmatched(-1), at-step-k, and completed. On every incoming event each
funnel's steps are tested in order; the first step whose configured
predicates (URL substring/wildcard, event type/name equality, or element
selector heuristic) accept the event becomes the candidate, and the strict
in-order transition rules apply:

  - candidate == current+1: advance, record the completion, bump the step's
    reached counter; the last step completes the session's run
  - candidate <= current with backtracking enabled: regress without erasing
    completion records; re-advancing re-earns reached increments
  - anything else (a skip ahead, or a backtrack when disallowed): ignored

Steps can never be skipped: matching step 2 before step 1 leaves the
session unentered.

Aggregates derive from the reached counters: conversion-from-previous,
drop-off count and rate per adjacent pair, completion rate over sessions
that reached step 0, and per-transition timing distributions
(min/median/average/max). Replaying the same event sequence against a fresh
engine yields identical statistics.

A malformed URL pattern or selector compiles to a predicate that never
matches; a single bad step cannot halt collection.

Consumers read state through snapshot accessors (Stats, SessionState) and
never hold references into the engine's arenas.
*/
package funnel
