package services

import (
	"log"
	"sync"
	"time"

	"cyber_case_app_go/models"
)

const (
	securityWindow        = 10 * time.Minute
	securityThreshold     = 5
	securityAlertCooldown = time.Hour
	securityAlertHistory  = 100
)

// SecurityEventMonitor counts repeated failed logins and scope denials and
// raises an alert when one source crosses the threshold inside the window
type SecurityEventMonitor struct {
	mu      sync.Mutex
	events  map[string][]time.Time // source key -> event timestamps inside the window
	alerted map[string]time.Time   // source key -> last alert time
	alerts  []SecurityAlert        // newest first
	now     func() time.Time
}

// SecurityAlert is one triggered alert
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"`
}

// Monitor is the process-wide monitor fed by LogSecurityEvent
var Monitor = NewSecurityEventMonitor()

// NewSecurityEventMonitor returns an empty monitor
func NewSecurityEventMonitor() *SecurityEventMonitor {
	return &SecurityEventMonitor{
		events:  make(map[string][]time.Time),
		alerted: make(map[string]time.Time),
		now:     time.Now,
	}
}

// securitySource picks who an event is attributed to. Failed logins are
// counted per client address, denials per officer.
func securitySource(action models.AuditAction, ctx AuditContext) string {
	if action == models.AuditActionLoginFailed && ctx.IPAddress != "" {
		return "ip:" + ctx.IPAddress
	}
	return "user:" + ctx.UserName
}

// Track records a security event. Only failed logins and access denials count.
func (m *SecurityEventMonitor) Track(action models.AuditAction, ctx AuditContext) {
	var reason string
	switch action {
	case models.AuditActionLoginFailed:
		reason = "Multiple failed logins detected"
	case models.AuditActionAccessDenied:
		reason = "Repeated access to cases outside jurisdiction"
	default:
		return
	}
	key := securitySource(action, ctx) + "|" + string(action)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-securityWindow)
	recent := m.events[key][:0]
	for _, t := range m.events[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	m.events[key] = recent

	if len(recent) >= securityThreshold {
		m.triggerAlertLocked(key, securitySource(action, ctx), string(action), reason, now)
	}
	m.pruneLocked(now)
}

// triggerAlertLocked records and logs an alert, at most one per source per cooldown
func (m *SecurityEventMonitor) triggerAlertLocked(key, source, action, reason string, now time.Time) {
	if last, ok := m.alerted[key]; ok && now.Sub(last) < securityAlertCooldown {
		return
	}
	m.alerted[key] = now

	alert := SecurityAlert{Timestamp: now, Source: source, Action: action, Reason: reason, Level: "CRITICAL"}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > securityAlertHistory {
		m.alerts = m.alerts[:securityAlertHistory]
	}

	RecordSecurityAlert(action)
	log.Printf("[SECURITY ALERT] %s from %s", reason, source)
}

// pruneLocked drops sources with no event in the window and expired cooldowns
func (m *SecurityEventMonitor) pruneLocked(now time.Time) {
	for key, times := range m.events {
		if len(times) == 0 || now.Sub(times[len(times)-1]) > securityWindow {
			delete(m.events, key)
		}
	}
	for key, last := range m.alerted {
		if now.Sub(last) > securityAlertCooldown {
			delete(m.alerted, key)
		}
	}
}

// RecentAlerts returns a copy of the alert history, newest first
func (m *SecurityEventMonitor) RecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	alertsCopy := make([]SecurityAlert, len(m.alerts))
	copy(alertsCopy, m.alerts)
	return alertsCopy
}
