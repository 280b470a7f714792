package auth

import (
	"errors"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

const specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_{|}~`"

// MinScore is the zxcvbn score below which a password is reported as weak.
const MinScore = 3

// Strength is advisory feedback on a candidate password. Nothing in the
// store enforces it; the terminal shows it before a first unlock.
type Strength struct {
	Score     int // zxcvbn score, 0 (guessable) to 4 (very strong)
	CrackTime string
	Problems  []error
}

// Weak reports whether the password scored low or broke a policy rule.
func (s Strength) Weak() bool {
	return s.Score < MinScore || len(s.Problems) > 0
}

// Assess scores pw with zxcvbn and lists every policy rule it breaks.
// hints are user specific words (store directory, user name) that make a
// password easier to guess.
func Assess(pw string, hints ...string) Strength {
	match := zxcvbn.PasswordStrength(pw, hints)
	return Strength{
		Score:     match.Score,
		CrackTime: match.CrackTimeDisplay,
		Problems:  policyProblems(pw),
	}
}

// ValidateMasterPassword applies the master password policy requirements.
func ValidateMasterPassword(pw string) error {
	if problems := policyProblems(pw); len(problems) > 0 {
		return problems[0]
	}
	return nil
}

var (
	errTooShort  = errors.New("password must be at least 12 characters long")
	errNoUpper   = errors.New("password must include an uppercase letter")
	errNoDigit   = errors.New("password must include a digit")
	errNoSpecial = errors.New("password must include a special character")
)

func policyProblems(pw string) []error {
	var problems []error
	if len([]rune(pw)) < 12 {
		problems = append(problems, errTooShort)
	}
	if !hasUpper(pw) {
		problems = append(problems, errNoUpper)
	}
	if !hasDigit(pw) {
		problems = append(problems, errNoDigit)
	}
	if !hasSpecial(pw) {
		problems = append(problems, errNoSpecial)
	}
	return problems
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasSpecial(s string) bool {
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
