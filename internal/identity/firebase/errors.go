package firebase

import (
	"strings"

	"github.com/mmcdole/marquee/internal/domain"
)

// errorCodes maps provider-native error codes to domain kinds
var errorCodes = map[string]domain.AuthErrorKind{
	"EMAIL_EXISTS":                   domain.AuthEmailAlreadyInUse,
	"INVALID_EMAIL":                  domain.AuthInvalidCredentials,
	"INVALID_PASSWORD":               domain.AuthInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":      domain.AuthInvalidCredentials,
	"MISSING_PASSWORD":               domain.AuthInvalidCredentials,
	"MISSING_EMAIL":                  domain.AuthInvalidCredentials,
	"WEAK_PASSWORD":                  domain.AuthWeakPassword,
	"EMAIL_NOT_FOUND":                domain.AuthUserNotFound,
	"USER_NOT_FOUND":                 domain.AuthUserNotFound,
	"USER_DISABLED":                  domain.AuthUserNotFound,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    domain.AuthRateLimited,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": domain.AuthSessionExpired,
	"TOKEN_EXPIRED":                  domain.AuthSessionExpired,
	"INVALID_REFRESH_TOKEN":          domain.AuthSessionExpired,
	"INVALID_ID_TOKEN":               domain.AuthSessionExpired,
}

// errorCode extracts the code from a message such as "WEAK_PASSWORD : Password should be..."
func errorCode(message string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(message), " ")
	return strings.TrimSuffix(code, ":")
}

func kindForCode(code string) domain.AuthErrorKind {
	if kind, ok := errorCodes[code]; ok {
		return kind
	}
	return domain.AuthUnknown
}

// revoked reports whether err means the stored refresh token can no longer be used
func revoked(err error) bool {
	switch domain.AuthErrorKindOf(err) {
	case domain.AuthSessionExpired, domain.AuthUserNotFound, domain.AuthInvalidCredentials:
		return true
	}
	return false
}
