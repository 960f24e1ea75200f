package identity

import (
	"errors"
	"strings"
)

// Error codes surfaced to callers. They follow the provider's "auth/..." naming
// so the translator below stays a closed table.
const (
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeWeakPassword        = "auth/weak-password"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeUserDisabled        = "auth/user-disabled"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodePopupClosed         = "auth/popup-closed-by-user"
	CodeNetworkFailed       = "auth/network-request-failed"
	CodeRequiresRecentLogin = "auth/requires-recent-login"
	CodeUserTokenExpired    = "auth/user-token-expired"
	CodeNoCurrentUser       = "auth/no-current-user"
	CodeInternal            = "auth/internal-error"
)

const fallbackMessage = "Something went wrong. Please try again."

// AuthError is returned by every identity operation that fails.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Code extracts the auth code from err, or CodeInternal.
func Code(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// UserMessage turns err into text that can be shown to the user. Unknown codes
// get a generic message instead of leaking provider wording.
func UserMessage(err error) string {
	switch Code(err) {
	case CodeEmailAlreadyInUse:
		return "An account with this email already exists."
	case CodeInvalidEmail:
		return "Please enter a valid email address."
	case CodeWeakPassword:
		return "Password should be at least 6 characters."
	case CodeInvalidCredential, CodeWrongPassword:
		return "Invalid email or password."
	case CodeUserNotFound:
		return "No account found with this email."
	case CodeUserDisabled:
		return "This account has been disabled."
	case CodeTooManyRequests:
		return "Too many attempts. Please try again later."
	case CodePopupClosed:
		return "Sign-in was cancelled."
	case CodeNetworkFailed:
		return "Network error. Check your connection and try again."
	case CodeRequiresRecentLogin, CodeUserTokenExpired:
		return "Please sign in again to continue."
	case CodeNoCurrentUser:
		return "You are not signed in."
	default:
		return fallbackMessage
	}
}

// codeFromProvider maps the provider's REST error message to an auth code.
// Messages look like "WEAK_PASSWORD : Password should be at least 6 characters".
func codeFromProvider(message string) string {
	key, _, _ := strings.Cut(message, " ")
	switch key {
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return CodeWeakPassword
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_IDP_RESPONSE":
		return CodeInvalidCredential
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "USER_DISABLED":
		return CodeUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return CodeRequiresRecentLogin
	case "TOKEN_EXPIRED", "INVALID_ID_TOKEN":
		return CodeUserTokenExpired
	default:
		return CodeInternal
	}
}
