package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_cases_created_total",
			Help: "Total number of cases registered",
		},
		[]string{"case_type"},
	)

	evidenceIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_evidence_ingested_total",
			Help: "Evidence files ingested, by initial verification status",
		},
		[]string{"verification_status"},
	)

	evidenceRetrievals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_evidence_retrievals_total",
			Help: "Evidence retrievals by outcome",
		},
		[]string{"outcome"}, // ok, integrity_failure, error
	)

	evidenceBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cybercase_evidence_size_bytes",
			Help:    "Size of ingested evidence plaintext",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_authorization_decisions_total",
			Help: "Scope and rank decisions",
		},
		[]string{"check", "decision"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	securityAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybercase_security_alerts_total",
			Help: "Security alerts raised by the event monitor",
		},
		[]string{"action"},
	)
)

// RecordCaseCreated records a case registration
func RecordCaseCreated(caseType string) {
	casesCreated.WithLabelValues(caseType).Inc()
}

// RecordEvidenceIngested records an accepted upload
func RecordEvidenceIngested(status string, size int) {
	evidenceIngested.WithLabelValues(status).Inc()
	evidenceBytes.Observe(float64(size))
}

// RecordEvidenceRetrieval records the outcome of a retrieval
func RecordEvidenceRetrieval(outcome string) {
	evidenceRetrievals.WithLabelValues(outcome).Inc()
}

// RecordAuthorizationDecision records a scope or rank decision
func RecordAuthorizationDecision(check string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(check, decision).Inc()
}

// RecordLoginAttempt records a login result (success, failure, locked)
func RecordLoginAttempt(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// RecordSecurityAlert records an alert raised for repeated events of action
func RecordSecurityAlert(action string) {
	securityAlerts.WithLabelValues(action).Inc()
}
