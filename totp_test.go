package goAccount

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"
)

func TestTOTPValidateRFCVectorsSHA1(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer: "goAccount",
		Digits: 8,
		Period: 30,
		Skew:   0,
	})
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, err := m.Validate(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPValidateRejectsWrongLength(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30, Skew: 1})
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))

	ok, err := m.Validate(secret, "1234", time.Unix(59, 0))
	if err != nil || ok {
		t.Fatalf("expected short code to be a plain mismatch, ok=%v err=%v", ok, err)
	}
}

func TestTOTPGenerateProvisioningURL(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goAccount", Digits: 6, Period: 30, Skew: 1})
	secret, url, err := m.Generate("ada@example.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if secret == "" {
		t.Fatal("expected secret")
	}
	if !strings.HasPrefix(url, "otpauth://totp/") || !strings.Contains(url, "issuer=goAccount") {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestTOTPReplayWindowCoversSkew(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30, Skew: 1})
	if got := m.replayWindow(); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
