package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TokensIssued            map[string]uint64
	TokensFailed            map[string]uint64
	TokenDurationCount      uint64
	TokenDurationTotalNs    int64
	CheckoutLookups         map[string]uint64
	CheckoutSessionsCreated uint64
	PasswordSetups          map[string]uint64
	WebhookEvents           map[string]uint64 // keyed by "<type>/<status>"
	Purged                  map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                      sync.Mutex
	tokensIssued            map[string]uint64
	tokensFailed            map[string]uint64
	checkoutLookups         map[string]uint64
	passwordSetups          map[string]uint64
	webhookEvents           map[string]uint64
	purged                  map[string]uint64
	tokenDurationCount      uint64
	tokenDurationTotalNs    int64
	checkoutSessionsCreated uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		tokensIssued:    make(map[string]uint64),
		tokensFailed:    make(map[string]uint64),
		checkoutLookups: make(map[string]uint64),
		passwordSetups:  make(map[string]uint64),
		webhookEvents:   make(map[string]uint64),
		purged:          make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		TokensIssued:            copyCounts(m.tokensIssued),
		TokensFailed:            copyCounts(m.tokensFailed),
		TokenDurationCount:      atomic.LoadUint64(&m.tokenDurationCount),
		TokenDurationTotalNs:    atomic.LoadInt64(&m.tokenDurationTotalNs),
		CheckoutLookups:         copyCounts(m.checkoutLookups),
		CheckoutSessionsCreated: atomic.LoadUint64(&m.checkoutSessionsCreated),
		PasswordSetups:          copyCounts(m.passwordSetups),
		WebhookEvents:           copyCounts(m.webhookEvents),
		Purged:                  copyCounts(m.purged),
	}
}

// IncTokenIssued increments the issued counter for a variant.
func (m *InMemoryRecorder) IncTokenIssued(variant string) {
	m.add(m.tokensIssued, variant, 1)
}

// IncTokenFailed increments the failure counter for a variant.
func (m *InMemoryRecorder) IncTokenFailed(variant string) {
	m.add(m.tokensFailed, variant, 1)
}

// ObserveTokenDuration records minting duration.
func (m *InMemoryRecorder) ObserveTokenDuration(variant string, duration time.Duration) {
	atomic.AddUint64(&m.tokenDurationCount, 1)
	atomic.AddInt64(&m.tokenDurationTotalNs, duration.Nanoseconds())
}

// IncCheckoutLookup increments checkout lookups by status.
func (m *InMemoryRecorder) IncCheckoutLookup(status string) {
	m.add(m.checkoutLookups, status, 1)
}

// IncCheckoutSessionCreated increments created checkout sessions.
func (m *InMemoryRecorder) IncCheckoutSessionCreated() {
	atomic.AddUint64(&m.checkoutSessionsCreated, 1)
}

// IncPasswordSetup increments password setups by status.
func (m *InMemoryRecorder) IncPasswordSetup(status string) {
	m.add(m.passwordSetups, status, 1)
}

// IncWebhookEvent increments webhook events by type and status.
func (m *InMemoryRecorder) IncWebhookEvent(eventType, status string) {
	m.add(m.webhookEvents, eventType+"/"+status, 1)
}

// AddPurged adds removed entries for a store.
func (m *InMemoryRecorder) AddPurged(store string, count int) {
	if count <= 0 {
		return
	}
	m.add(m.purged, store, uint64(count))
}

func (m *InMemoryRecorder) add(counts map[string]uint64, key string, delta uint64) {
	m.mu.Lock()
	counts[key] += delta
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
