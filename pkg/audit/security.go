// Package audit provides security audit logging for SIEM consumption.
// Events are logged in structured JSON format under the "security_audit"
// logger name so they can be routed and alerted on separately.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionFlagged is logged when a question matches a libinjection fingerprint.
	EventInjectionFlagged SecurityEventType = "sql_injection_flag"
	// EventStatementRejected is logged when generated SQL is refused before execution.
	EventStatementRejected SecurityEventType = "statement_rejected"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Database  string            `json:"database,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails describes a flagged question.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`       // sanitized and truncated
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// RejectionDetails describes a statement refused before execution.
type RejectionDetails struct {
	SQL    string `json:"sql"`
	Reason string `json:"reason"`
}

// SecurityAuditor logs security events.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

// LogInjectionFlag records a question that looks like an injection payload.
// The question is still answered; this is logged at WARN with "warning" severity.
func (a *SecurityAuditor) LogInjectionFlag(ctx context.Context, database, field, value, fingerprint string) {
	event := a.event(ctx, EventInjectionFlagged, database, "warning", InjectionDetails{
		Field:       field,
		Value:       logging.SanitizeQuery(value),
		Fingerprint: fingerprint,
	})

	a.logger.Warn("Question matches SQL injection fingerprint",
		zap.String("event_json", marshal(event)),
		zap.String("request_id", event.RequestID),
		zap.String("database", database),
		zap.String("field", field),
		zap.String("fingerprint", fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogStatementRejected records generated SQL that was refused before it
// reached the database. Logged at ERROR with "critical" severity.
func (a *SecurityAuditor) LogStatementRejected(ctx context.Context, database, statement string, reason error) {
	event := a.event(ctx, EventStatementRejected, database, "critical", RejectionDetails{
		SQL:    logging.SanitizeQuery(statement),
		Reason: logging.SanitizeError(reason),
	})

	a.logger.Error("Generated statement rejected",
		zap.String("event_json", marshal(event)),
		zap.String("request_id", event.RequestID),
		zap.String("database", database),
		zap.String("reason", logging.SanitizeError(reason)),
		zap.String("severity", event.Severity),
	)
}

func (a *SecurityAuditor) event(ctx context.Context, kind SecurityEventType, database, severity string, details any) SecurityEvent {
	return SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: kind,
		RequestID: logging.RequestID(ctx),
		Database:  database,
		Details:   details,
		Severity:  severity,
	}
}

// marshal ignores the error: every event field is a plain value.
func marshal(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
