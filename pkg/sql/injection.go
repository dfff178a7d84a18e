package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on user text.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Field       string // Name of the input that failed the check
}

// CheckForInjection runs libinjection over a piece of user input.
//
// Questions are natural language and are never spliced into SQL, so a positive
// result is a signal for logging and metrics, not a reason to reject the request.
//
// Returns nil if no injection pattern is detected.
//
// Example:
//
//	CheckForInjection("query", "top 5 customers by revenue") // nil
//	CheckForInjection("query", "' OR '1'='1")               // IsSQLi == true
func CheckForInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Field:       field,
	}
}
