package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_logins_total",
			Help: "Login attempts by result (ok/unauthorized/error).",
		},
		[]string{"result"},
	)

	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Registration attempts by result.",
		},
		[]string{"result"},
	)

	tokenVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_token_verifications_total",
			Help: "Bearer token verifications by result (ok/cache_miss/unauthorized).",
		},
		[]string{"result"},
	)

	codeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_code_transitions_total",
			Help: "Activation code lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	sessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "account_sessions_swept_total",
			Help: "Session rows removed by the periodic sweep.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			loginsTotal, registrationsTotal, tokenVerifications,
			codeTransitions, sessionsSwept,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncLogin(result string)        { loginsTotal.WithLabelValues(norm(result)).Inc() }
func IncRegistration(result string) { registrationsTotal.WithLabelValues(norm(result)).Inc() }
func IncTokenVerify(result string)  { tokenVerifications.WithLabelValues(norm(result)).Inc() }
func IncCodeTransition(to string)   { codeTransitions.WithLabelValues(norm(to)).Inc() }

func AddSessionsSwept(n int) {
	if n > 0 {
		sessionsSwept.Add(float64(n))
	}
}
