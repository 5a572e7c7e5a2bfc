// Package output provides JSON output formatting and error handling.
package output

// Exit codes for the CLI.
const (
	ExitOK         = 0 // Success
	ExitUsage      = 1 // Invalid arguments or flags
	ExitCredential = 2 // Credentials missing or unreadable
	ExitAuth       = 3 // Authorization rejected (reauth required)
	ExitForbidden  = 4 // Access denied (scope issue)
	ExitRefresh    = 5 // Token refresh failed
	ExitNetwork    = 6 // Connection/DNS/timeout error
	ExitAPI        = 7 // Server returned error
	ExitDecode     = 8 // Response body could not be decoded
)

// Error codes for the JSON envelope.
const (
	CodeUsage               = "usage"
	CodeCredentialNotFound  = "credential_not_found"
	CodeCredentialInvalid   = "credential_invalid"
	CodeRefreshNoToken      = "refresh_no_token"
	CodeRefreshInvalidGrant = "refresh_invalid_grant"
	CodeRefreshHTTP         = "refresh_http_error"
	CodeUnauthorized        = "usage_unauthorized"
	CodeForbidden           = "usage_forbidden"
	CodeNetwork             = "network"
	CodeAPI                 = "api_error"
	CodeDecode              = "decode_error"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeCredentialNotFound, CodeCredentialInvalid:
		return ExitCredential
	case CodeUnauthorized, CodeRefreshInvalidGrant:
		return ExitAuth
	case CodeForbidden:
		return ExitForbidden
	case CodeRefreshNoToken, CodeRefreshHTTP:
		return ExitRefresh
	case CodeNetwork:
		return ExitNetwork
	case CodeDecode:
		return ExitDecode
	case CodeAPI:
		return ExitAPI
	default:
		return ExitAPI
	}
}

// RequiresReauth reports whether an error code means the stored credentials
// can no longer be used and the user must authenticate again externally.
func RequiresReauth(code string) bool {
	switch code {
	case CodeRefreshInvalidGrant, CodeUnauthorized, CodeForbidden:
		return true
	default:
		return false
	}
}
