// Package metrics exposes Prometheus collectors for search latency, result
// cache effectiveness and catalog index rebuilds.
package metrics
