/*
Package config loads and validates the tracker's declarative configuration.

One YAML document configures everything: the collector endpoint, the
feature toggles, delivery flush tuning, session metadata, and the funnel
and persona definitions. Absent fields take defaults (every feature on,
debug off, flush at 10 events / 5 seconds).

Validation runs at load time so a malformed definition aborts
initialization instead of surfacing mid-collection: unknown operators,
metrics and timeframes, missing operands, inverted ranges and duplicate
ids are all load errors. A missing collector endpoint is the one
configuration error that leaves the whole system inert.

# Example

	collector: https://collect.example.com
	dataDir: /var/lib/standlog
	features:
	  personas: true
	  funnels: true
	flush:
	  size: 10
	  interval: 5s
	funnels:
	  - id: checkout
	    name: Checkout
	    steps:
	      - id: cart
	        urlPattern: "/cart"
	      - id: payment
	        urlPattern: "/checkout/payment"
	      - id: confirm
	        eventName: conversion
	    options:
	      window: 30m
	personas:
	  - id: whale
	    label: Whale
	    rules:
	      - metric: conversions
	        op: gte
	        value: 5
	        timeframe: all_time
*/
package config
