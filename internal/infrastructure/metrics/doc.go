// Package metrics exposes client counters to Prometheus.
//
// Collectors live on a private registry so tests can create as many
// instances as they like. A nil *Metrics records nothing, which lets callers
// skip nil checks when metrics are disabled.
package metrics
