package password

import (
	"context"
	"strings"
	"unicode/utf8"
)

const minPersonalFieldLength = 3

// Violation codes returned by [Policy.Validate].
const (
	ViolationEmpty           = "empty"
	ViolationBreached        = "breached"
	ViolationContainsEmail   = "contains_email"
	ViolationContainsName    = "contains_name"
	ViolationContainsSurname = "contains_surname"
	ViolationContainsAlias   = "contains_alias"
)

// Violation is a single policy failure with a user-facing message.
type Violation struct {
	Code    string
	Message string
}

// PersonalInfo is the account data a password must not contain.
type PersonalInfo struct {
	Email   string
	Name    string
	Surname string
	Alias   string
}

// BreachLookup reports whether a plaintext appears in a breach corpus.
type BreachLookup interface {
	IsCompromised(ctx context.Context, plaintext string) bool
}

// Policy rejects empty, breached and personal-information passwords.
type Policy struct {
	breach BreachLookup
}

// NewPolicy returns a Policy. breach may be nil to skip corpus lookups.
func NewPolicy(breach BreachLookup) *Policy {
	return &Policy{breach: breach}
}

// Validate returns the violations for password, in rule order. An empty result
// means the password is acceptable. The empty and breached rules stop evaluation.
func (p *Policy) Validate(ctx context.Context, password string, info PersonalInfo) []Violation {
	if password == "" {
		return []Violation{{Code: ViolationEmpty, Message: "password must not be empty"}}
	}

	if p != nil && p.breach != nil && p.breach.IsCompromised(ctx, password) {
		return []Violation{{
			Code:    ViolationBreached,
			Message: "password has appeared in a data breach, choose a different one",
		}}
	}

	lowered := strings.ToLower(password)
	localPart, _, _ := strings.Cut(info.Email, "@")

	var violations []Violation
	for _, field := range []struct {
		value   string
		code    string
		message string
	}{
		{localPart, ViolationContainsEmail, "password must not contain your email address"},
		{info.Name, ViolationContainsName, "password must not contain your name"},
		{info.Surname, ViolationContainsSurname, "password must not contain your surname"},
		{info.Alias, ViolationContainsAlias, "password must not contain your alias"},
	} {
		value := strings.TrimSpace(field.value)
		if utf8.RuneCountInString(value) < minPersonalFieldLength {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(value)) {
			violations = append(violations, Violation{Code: field.code, Message: field.message})
		}
	}

	return violations
}

// FirstMessage returns the message of the first violation, or "".
func FirstMessage(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}
	return violations[0].Message
}
