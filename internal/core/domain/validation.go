package domain

import (
	"regexp"
	"unicode"
)

const (
	MaxUsernameLength   = 100
	MinPasswordLength   = 12
	MaxPasswordLength   = 72 // bcrypt ignores input past 72 bytes
	MaxDeviceNameLength = 150
)

var usernamePattern = regexp.MustCompile(`^[^\d]\w*$`)

// UsernameProblem returns why u is not an acceptable username, or "".
// Usernames are case-sensitive and must not start with a digit.
func UsernameProblem(u string) string {
	switch {
	case u == "":
		return "is required"
	case len(u) > MaxUsernameLength:
		return "must be at most 100 characters"
	case !usernamePattern.MatchString(u):
		return "must not start with a number and may only contain letters, digits and underscores"
	}
	return ""
}

// PasswordProblem returns why p is not an acceptable password, or "".
func PasswordProblem(p string) string {
	if len(p) < MinPasswordLength {
		return "must be at least 12 characters long"
	}
	if len(p) > MaxPasswordLength {
		return "must be at most 72 bytes long"
	}

	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r) && r <= unicode.MaxASCII:
			lower = true
		case unicode.IsUpper(r) && r <= unicode.MaxASCII:
			upper = true
		case unicode.IsDigit(r) && r <= unicode.MaxASCII:
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return "must have at least one lowercase, one uppercase, one number, and one symbol"
	}
	return ""
}

// ValidateCredentials checks a username/password pair and reports every
// offending field at once.
func ValidateCredentials(username, password string) error {
	fields := map[string]string{}
	if msg := UsernameProblem(username); msg != "" {
		fields["username"] = msg
	}
	if msg := PasswordProblem(password); msg != "" {
		fields["password"] = msg
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
