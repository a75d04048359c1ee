package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts tracks completed handshakes by result
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_auth_attempts_total",
			Help: "Total number of OAuth2 authorization code flows by result (success/failure)",
		},
		[]string{"result", "reason"},
	)

	// TokenRequestDuration tracks round trips to the token endpoint
	TokenRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipts_token_request_duration_seconds",
			Help:    "Duration of token endpoint requests by grant type",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"grant_type"},
	)

	// TokenRefreshes tracks token refresh operations
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_token_refreshes_total",
			Help: "Total number of token refresh operations by result",
		},
		[]string{"result", "reason"},
	)

	// ConfidentialDowngrades counts sessions configured as confidential whose
	// code exchange returned no refresh token
	ConfidentialDowngrades = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "receipts_confidential_downgrades_total",
			Help: "Total number of confidential sessions demoted because no refresh token was issued",
		},
	)

	// CallbacksReceived tracks OAuth callbacks by result
	CallbacksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_callbacks_received_total",
			Help: "Total number of OAuth callbacks processed by result",
		},
		[]string{"result"},
	)

	// APIRequests tracks authenticated API calls by verb and status
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_api_requests_total",
			Help: "Total number of authenticated API requests by method and status",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration tracks authenticated API call duration
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipts_api_request_duration_seconds",
			Help:    "Duration of authenticated API requests",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// HTTPRequestDuration tracks requests served by the local callback listener
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipts_callback_http_request_duration_seconds",
			Help:    "Duration of callback listener requests by path and status",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"path", "method", "status"},
	)

	// RateLimitHits tracks rate limit hits on the callback listener
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "receipts_rate_limit_hits_total",
			Help: "Total number of callback listener requests that hit rate limits",
		},
	)
)

// RecordAuthSuccess records a completed handshake
func RecordAuthSuccess() {
	AuthAttempts.WithLabelValues("success", "").Inc()
}

// RecordAuthFailure records a failed handshake with reason
func RecordAuthFailure(reason string) {
	AuthAttempts.WithLabelValues("failure", reason).Inc()
}

// RecordTokenRefreshSuccess records a successful token refresh
func RecordTokenRefreshSuccess() {
	TokenRefreshes.WithLabelValues("success", "").Inc()
}

// RecordTokenRefreshFailure records a failed token refresh with reason
func RecordTokenRefreshFailure(reason string) {
	TokenRefreshes.WithLabelValues("failure", reason).Inc()
}

// RecordCallbackSuccess records an accepted OAuth callback
func RecordCallbackSuccess() {
	CallbacksReceived.WithLabelValues("success").Inc()
}

// RecordCallbackFailure records a rejected OAuth callback
func RecordCallbackFailure() {
	CallbacksReceived.WithLabelValues("failure").Inc()
}

// RecordConfidentialDowngrade records a confidential session losing refresh capability
func RecordConfidentialDowngrade() {
	ConfidentialDowngrades.Inc()
}
