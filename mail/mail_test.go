package mail

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailerLogsWithoutBodyAtInfo(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	m := NewLogMailer(logger)
	require.NoError(t, m.Send(context.Background(), ThirdFactorCode("a@x.com", "123456", 15*time.Minute)))

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, "a@x.com", entry.Data["to"])
	_, hasBody := entry.Data["body"]
	assert.False(t, hasBody)
}

func TestSendRequiresRecipient(t *testing.T) {
	assert.ErrorIs(t, NewLogMailer(nil).Send(context.Background(), Message{}), ErrNoRecipient)
	assert.ErrorIs(t, (&Recorder{}).Send(context.Background(), Message{To: " "}), ErrNoRecipient)
}

func TestRecorderLast(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Send(ctx, Message{To: "a@x.com", Subject: "one"}))
	require.NoError(t, r.Send(ctx, Message{To: "b@x.com", Subject: "two"}))
	require.NoError(t, r.Send(ctx, Message{To: "A@x.com", Subject: "three"}))

	msg, ok := r.Last("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "three", msg.Subject)
	assert.Len(t, r.Sent(), 3)

	_, ok = r.Last("c@x.com")
	assert.False(t, ok)
}

func TestTemplatesMentionExpiry(t *testing.T) {
	msg := PasswordReset("a@x.com", "https://app/reset?token=t", time.Hour)
	assert.Contains(t, msg.Body, "60 minutes")
	assert.Contains(t, msg.Body, "token=t")
}
