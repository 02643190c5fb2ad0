package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthAttempts counts entitlement-gate outcomes. The "result" label is one of
// ok, invalid_credentials, suspended, no_subscription, backend_error.
var AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gate_auth_attempts_total",
	Help: "Entitlement gate outcomes",
}, []string{"result"})

// APIRequests counts player_api action requests by action name.
var APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gate_api_requests_total",
	Help: "player_api requests by action",
}, []string{"action"})

// StreamRequests counts path-style stream resolutions. The "kind" label is
// live, segment, vod, series or timeshift; "result" is ok, not_found,
// unauthorized or not_implemented.
var StreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gate_stream_requests_total",
	Help: "Path-style stream resolutions",
}, []string{"kind", "result"})

// BackendErrors counts store failures surfaced at the router boundary.
var BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gate_backend_errors_total",
	Help: "Backend store failures",
}, []string{"surface"})

// ActiveConnections tracks concurrent stream resolutions per subscriber.
// This gauge feeds the active_cons field of the auth response; it is
// monitoring only and enforces nothing.
var ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "xc_gate_active_connections",
	Help: "Active stream connections per subscriber",
}, []string{"username"})
