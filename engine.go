package goAccount

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/csrf"
	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
	"github.com/sirupsen/logrus"
)

const (
	notifyTimeout = 10 * time.Second

	// maxReportedAddresses bounds the address list attached to a
	// distributed-attack log entry and audit event.
	maxReportedAddresses = 32
)

// Engine is the account security core. It is built once with [Builder] and is
// safe for concurrent use; every request method takes the caller's context,
// decorated with [WithClientIP] and [WithRequestID].
type Engine struct {
	config Config
	log    logrus.FieldLogger
	now    func() time.Time

	directory   account.Directory
	tokens      token.Store
	sessions    *session.Registry
	attempts    *limiters.AttemptTracker
	limiter     *rate.Limiter
	thirdFactor *stores.ThirdFactorStore
	totpStore   *stores.TOTPStore

	hasher      *password.Chain
	dummyDigest string
	policy      *password.Policy
	csrf        *csrf.Manager
	totp        *totpManager
	mailer      mail.Mailer

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	flows   internalflows.Service

	notify sync.WaitGroup
}

// Close waits for in-flight advisory mails and drains the audit buffer.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.notify.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return defaultConfig()
	}
	return cloneConfig(e.config)
}

// AuditDropped reports events lost because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, started time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, e.now().Sub(started))
}

func (e *Engine) warn(msg string, fields map[string]any) {
	e.log.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (e *Engine) hooks() internalflows.Hooks {
	return internalflows.Hooks{
		ClientIPFromContext: clientIPFromContext,
		Now:                 e.now,
		MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:           e.emitAudit,
		Warn:                e.warn,
	}
}

// notifyRateLimited mails an advisory to the owner of identity, if any. It runs
// in the background so the refused request answers immediately.
func (e *Engine) notifyRateLimited(ctx context.Context, identity, action string) {
	if e.mailer == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	e.notify.Add(1)
	go func() {
		defer e.notify.Done()

		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		p, err := e.directory.FindByEmailCI(ctx, identity)
		if err != nil {
			return
		}
		if err := e.mailer.Send(ctx, mail.RateLimitAdvisory(p.Email, action)); err != nil {
			e.warn("rate limit advisory delivery failed", map[string]any{"account_id": p.ID, "error": err.Error()})
		}
	}()
}

func (e *Engine) onDistributedAttack(identity string, failures int) {
	addresses := e.attempts.Addresses(identity)
	slices.Sort(addresses)
	listed := addresses[:min(len(addresses), maxReportedAddresses)]

	e.metricInc(MetricDistributedAttack)
	e.log.WithFields(logrus.Fields{
		"component":            "attempts",
		"identifier":           identity,
		"failures":             failures,
		"source_address_count": len(addresses),
		"source_addresses":     listed,
	}).Warn("distributed login attack detected")
	e.emitAudit(context.Background(), auditEventDistributedAttack, false, "", nil, func() map[string]string {
		return map[string]string{
			"identifier":           identity,
			"source_address_count": strconv.Itoa(len(addresses)),
			"source_addresses":     strings.Join(listed, ","),
		}
	})
}

// backendErr folds the Redis failures of the internal stores into
// ErrRedisUnavailable. Other errors pass through unchanged.
func backendErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRedisUnavailable):
		return err
	case errors.Is(err, rate.ErrRedisUnavailable),
		errors.Is(err, stores.ErrStoreUnavailable),
		errors.Is(err, token.ErrRedisUnavailable):
		return wrapRedis(err)
	}
	return err
}
