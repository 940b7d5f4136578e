// Package mail defines the outbound email boundary. Delivery itself is owned by
// another service; this package only shapes messages and hands them over.
package mail

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNoRecipient is returned for messages without a To address.
var ErrNoRecipient = errors.New("mail: recipient is required")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. Bodies are only
// logged at debug level since they can carry one-time codes.
type LogMailer struct {
	log logrus.FieldLogger
}

// NewLogMailer returns a LogMailer. log may be nil.
func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	entry := m.log.WithFields(logrus.Fields{
		"component": "mail",
		"to":        msg.To,
		"subject":   msg.Subject,
	})
	entry.Info("outbound mail")
	entry.WithField("body", msg.Body).Debug("outbound mail body")
	return nil
}

// Recorder keeps every sent message in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message sent to addr.
func (r *Recorder) Last(addr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if strings.EqualFold(r.sent[i].To, addr) {
			return r.sent[i], true
		}
	}
	return Message{}, false
}
