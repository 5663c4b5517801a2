package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncTokenIssued is a no-op.
func (n *NoopRecorder) IncTokenIssued(variant string) {}

// IncTokenFailed is a no-op.
func (n *NoopRecorder) IncTokenFailed(variant string) {}

// ObserveTokenDuration is a no-op.
func (n *NoopRecorder) ObserveTokenDuration(variant string, duration time.Duration) {}

// IncCheckoutLookup is a no-op.
func (n *NoopRecorder) IncCheckoutLookup(status string) {}

// IncCheckoutSessionCreated is a no-op.
func (n *NoopRecorder) IncCheckoutSessionCreated() {}

// IncPasswordSetup is a no-op.
func (n *NoopRecorder) IncPasswordSetup(status string) {}

// IncWebhookEvent is a no-op.
func (n *NoopRecorder) IncWebhookEvent(eventType, status string) {}

// AddPurged is a no-op.
func (n *NoopRecorder) AddPurged(store string, count int) {}
