package password

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBreach struct {
	compromised map[string]bool
	calls       int
}

func (f *fakeBreach) IsCompromised(_ context.Context, plaintext string) bool {
	f.calls++
	return f.compromised[plaintext]
}

func testInfo() PersonalInfo {
	return PersonalInfo{
		Email:   "Jane.Doe@example.com",
		Name:    "Jane",
		Surname: "Doe",
		Alias:   "jd_rocks",
	}
}

func TestPolicyRejectsEmptyWithoutBreachLookup(t *testing.T) {
	breach := &fakeBreach{}
	violations := NewPolicy(breach).Validate(context.Background(), "", testInfo())

	require.Len(t, violations, 1)
	assert.Equal(t, ViolationEmpty, violations[0].Code)
	assert.Equal(t, 0, breach.calls)
}

func TestPolicyBreachShortCircuits(t *testing.T) {
	breach := &fakeBreach{compromised: map[string]bool{"janepassword": true}}
	violations := NewPolicy(breach).Validate(context.Background(), "janepassword", testInfo())

	require.Len(t, violations, 1)
	assert.Equal(t, ViolationBreached, violations[0].Code)
}

func TestPolicyRejectsPersonalInformation(t *testing.T) {
	policy := NewPolicy(&fakeBreach{})

	cases := []struct {
		password string
		code     string
	}{
		{"xx-JANE.DOE-xx", ViolationContainsEmail},
		{"jane.doe", ViolationContainsEmail},
		{"myJANEpass", ViolationContainsName},
		{"JD_ROCKS!!", ViolationContainsAlias},
	}
	for _, tc := range cases {
		violations := policy.Validate(context.Background(), tc.password, testInfo())
		require.NotEmpty(t, violations, tc.password)
		assert.Equal(t, tc.code, violations[0].Code, tc.password)
	}
}

func TestPolicyIgnoresShortFields(t *testing.T) {
	info := testInfo()
	info.Surname = "Li"
	info.Email = "jo@example.com"

	violations := NewPolicy(nil).Validate(context.Background(), "correct-horse-li-jo", info)
	assert.Empty(t, violations)
}

func TestPolicyReportsEveryPersonalField(t *testing.T) {
	violations := NewPolicy(nil).Validate(context.Background(), "jane.doe-jd_rocks", testInfo())

	codes := make([]string, 0, len(violations))
	for _, v := range violations {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []string{ViolationContainsEmail, ViolationContainsName, ViolationContainsSurname, ViolationContainsAlias}, codes)
	assert.Equal(t, "password must not contain your email address", FirstMessage(violations))
}

func TestPolicyAcceptsStrongPassword(t *testing.T) {
	violations := NewPolicy(&fakeBreach{}).Validate(context.Background(), "violet-otter-sails-north", testInfo())
	assert.Empty(t, violations)
	assert.Equal(t, "", FirstMessage(violations))
}
