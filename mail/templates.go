package mail

import (
	"fmt"
	"time"
)

// ThirdFactorCode builds the message carrying an out-of-band login code.
func ThirdFactorCode(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your sign-in code",
		Body: fmt.Sprintf(
			"Your sign-in code is %s. It expires in %d minutes. If you did not try to sign in, change your password.",
			code, int(ttl.Minutes()),
		),
	}
}

// PasswordReset builds the message carrying a reset link.
func PasswordReset(to, link string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Use the following link to choose a new password: %s\nThe link expires in %d minutes and can be used once.",
			link, int(ttl.Minutes()),
		),
	}
}

// RateLimitAdvisory warns the account owner about repeated attempts.
func RateLimitAdvisory(to, action string) Message {
	return Message{
		To:      to,
		Subject: "Unusual activity on your account",
		Body: fmt.Sprintf(
			"We blocked further %s attempts on your account for a while. If this was not you, consider changing your password.",
			action,
		),
	}
}
