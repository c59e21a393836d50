// validate.go - Input validation shared by the service layer.
//
// Usernames and group names follow the same rule: 4-30 characters from
// [A-Za-z0-9_], starting with a letter. Names are 2-30 letters. Passwords
// are 6-30 characters of any kind.
package ledger

import "regexp"

const (
	MinUsernameLen = 4
	MaxUsernameLen = 30
	MinNameLen     = 2
	MaxNameLen     = 30
	MinPasswordLen = 6
	MaxPasswordLen = 30
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,29}$`)
	lettersRe  = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// ValidateStrings rejects nil-ish arguments: empty or all-whitespace.
func ValidateStrings(args ...string) error {
	for _, s := range args {
		if isBlank(s) {
			return &InvalidArgumentError{Field: "argument", Reason: "must not be blank"}
		}
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// IsValidUsername also covers group names.
func IsValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

func IsValidName(name string) bool {
	return len(name) >= MinNameLen && len(name) <= MaxNameLen && lettersRe.MatchString(name)
}

func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLen && len(password) <= MaxPasswordLen
}
