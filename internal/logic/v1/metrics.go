package v1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes used as the "result" label.
const (
	resultSuccess         = "success"
	resultInvalidRequest  = "invalid_request"
	resultUserNotFound    = "user_not_found"
	resultInvalidPassword = "invalid_password"
	resultDuplicate       = "duplicate_email"
	resultError           = "error"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Registration attempts by result.",
	}, []string{"result"})

	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_swept_total",
		Help: "Expired sessions removed by the sweeper.",
	})

	sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_session_sweep_failures_total",
		Help: "Sweeper runs that failed.",
	})
)
