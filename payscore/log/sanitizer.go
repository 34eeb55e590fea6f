package log

import (
	"context"
	"fmt"
	"strings"
)

// controlCharReplacer escapes control characters that can be used for log injection (CWE-117).
// Gateway-supplied values (error messages, nonces, serial numbers) are echoed into logs,
// so a forged newline could otherwise fabricate audit entries.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// SanitizeString escapes control characters in a single string value.
func SanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}

// SafeError logs errors with explicit production-aware sanitization.
// When production is true, only the error type is logged.
func SafeError(logger Logger, ctx context.Context, msg string, err error, production bool) {
	if logger == nil {
		return
	}

	if err == nil {
		return
	}

	if !logger.Enabled(LevelError) {
		return
	}

	if production {
		logger.Log(ctx, LevelError, msg, String("error_type", fmt.Sprintf("%T", err)))
		return
	}

	logger.Log(ctx, LevelError, msg, String("error", SanitizeString(err.Error())))
}

// SanitizeExternalResponse removes potentially sensitive gateway response data.
// Returns only the status code for error messages.
func SanitizeExternalResponse(statusCode int) string {
	return fmt.Sprintf("payment gateway returned status %d", statusCode)
}
