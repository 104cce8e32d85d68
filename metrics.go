package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginRateLimited
	MetricLogout
	MetricSignupSuccess
	MetricSignupDuplicate
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricAuthorizeSuccess
	MetricAuthorizeRejected
	MetricAccountDeactivated
	metricIDCount
)

const cacheLineSize = 64

// Counters live in padded slots so hot-path increments on different
// ids do not share a cache line.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's in-process counter set. All methods are safe
// for concurrent use and are no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns a counter set honoring the enable flag.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter under atomic loads.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// MetricName returns the stable export name for a metric id.
func MetricName(id MetricID) string {
	switch id {
	case MetricLoginSuccess:
		return "login_success"
	case MetricLoginFailure:
		return "login_failure"
	case MetricLoginLocked:
		return "login_locked"
	case MetricLoginRateLimited:
		return "login_rate_limited"
	case MetricLogout:
		return "logout"
	case MetricSignupSuccess:
		return "signup_success"
	case MetricSignupDuplicate:
		return "signup_duplicate"
	case MetricPasswordResetRequest:
		return "password_reset_request"
	case MetricPasswordResetConfirmSuccess:
		return "password_reset_confirm_success"
	case MetricPasswordResetConfirmFailure:
		return "password_reset_confirm_failure"
	case MetricAuthorizeSuccess:
		return "authorize_success"
	case MetricAuthorizeRejected:
		return "authorize_rejected"
	case MetricAccountDeactivated:
		return "account_deactivated"
	default:
		return "unknown"
	}
}

// MetricIDs lists every defined metric id in order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}
