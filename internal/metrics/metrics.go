// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Token issuance metrics. variant: "live" or "mock".
	IncTokenIssued(variant string)
	IncTokenFailed(variant string)
	ObserveTokenDuration(variant string, duration time.Duration)

	// Account function metrics
	IncCheckoutLookup(status string) // status: "found", "not_found", "error"
	IncCheckoutSessionCreated()
	IncPasswordSetup(status string) // status: "success", "not_found", "error"

	// Payments webhook metrics
	IncWebhookEvent(eventType, status string) // status: "processed", "ignored", "duplicate", "failed"

	// Maintenance metrics
	AddPurged(store string, count int)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
