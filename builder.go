package goAccount

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/csrf"
	"github.com/MrEthical07/goAccount/internal"
	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Builder assembles an Engine. A Builder can be used for a single Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	db     *gorm.DB

	directory  account.Directory
	tokens     token.Store
	mailer     mail.Mailer
	auditSink  AuditSink
	log        logrus.FieldLogger
	httpClient *http.Client
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared Redis client. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDatabase sets the SQL handle backing the default account directory and,
// with TokenBackendSQL, the token store.
func (b *Builder) WithDatabase(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithDirectory overrides the account directory built from WithDatabase.
func (b *Builder) WithDirectory(dir account.Directory) *Builder {
	b.directory = dir
	return b
}

// WithTokenStore overrides the store selected by Config.Token.Backend.
func (b *Builder) WithTokenStore(store token.Store) *Builder {
	b.tokens = store
	return b
}

func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.log = log
	return b
}

// WithHTTPClient sets the client used for breach corpus lookups.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithClock replaces time.Now. Tests only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.log
	if log == nil {
		log = logrus.StandardLogger()
	}

	// -------- ACCOUNT DIRECTORY --------
	directory := b.directory
	if directory == nil {
		if b.db == nil {
			return nil, errors.New("account directory or database required")
		}
		directory = account.NewGormDirectory(b.db)
	}

	// -------- TOKEN STORE --------
	tokens := b.tokens
	if tokens == nil {
		switch cfg.Token.Backend {
		case TokenBackendSQL:
			if b.db == nil {
				return nil, errors.New("Token Backend 'sql' requires a database")
			}
			tokens = token.NewGormStore(b.db, cfg.Token.TTL, now)
		default:
			tokens = token.NewRedisStore(b.redis, cfg.Token.TTL, now)
		}
	}

	// -------- PASSWORDS --------
	hasher, err := newHasherChain(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummyPlaintext, err := internal.NewResetToken()
	if err != nil {
		return nil, err
	}
	dummyDigest, err := hasher.Hash(dummyPlaintext)
	if err != nil {
		return nil, err
	}

	breach := password.NewBreachChecker(cfg.Breach, b.httpClient, log)

	// -------- CSRF --------
	csrfManager, err := csrf.NewManager(csrf.Config{
		Secret: []byte(cfg.CSRF.Secret),
		TTL:    cfg.CSRF.TTL,
		Issuer: cfg.CSRF.Issuer,
		Leeway: cfg.CSRF.Leeway,
	}, now)
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NewLogMailer(log)
	}
	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewLogrusSink(log)
	}

	engine := &Engine{
		config:      cfg,
		log:         log,
		now:         now,
		directory:   directory,
		tokens:      tokens,
		sessions:    session.NewRegistry(cfg.Session, now),
		attempts:    limiters.NewAttemptTracker(limiters.AttemptConfig(cfg.Attempts), now),
		limiter:     rate.New(b.redis, rate.Config(cfg.RateLimit), now),
		thirdFactor: stores.NewThirdFactorStore(b.redis, now),
		totpStore:   stores.NewTOTPStore(b.redis),
		hasher:      hasher,
		dummyDigest: dummyDigest,
		policy:      password.NewPolicy(breach),
		csrf:        csrfManager,
		totp:        newTOTPManager(cfg.TOTP),
		mailer:      mailer,
		audit:       internalaudit.NewDispatcher(cfg.Audit, sink, log),
		metrics:     NewMetrics(cfg.Metrics),
	}
	engine.attempts.OnDistributedAttack = engine.onDistributedAttack

	engine.flows = internalflows.New(internalflows.Deps{
		Login:         engine.loginFlowDeps(),
		ThirdFactor:   engine.thirdFactorFlowDeps(),
		PasswordReset: engine.passwordResetFlowDeps(),
		Register:      engine.registerFlowDeps(),
		TOTP:          engine.totpFlowDeps(),
		Validate:      engine.validateFlowDeps(),
	})

	b.built = true

	return engine, nil
}

// NewHasher returns the hasher chain an engine built with cfg would use.
// Provisioning tools use it to produce digests without a running engine.
func NewHasher(cfg PasswordConfig) (*password.Chain, error) {
	return newHasherChain(cfg)
}

// newHasherChain puts the configured algorithm first and keeps the other one
// for verifying older digests.
func newHasherChain(cfg PasswordConfig) (*password.Chain, error) {
	bcryptHasher, err := password.NewBcrypt(cfg.BcryptCost, cfg.Pepper)
	if err != nil {
		return nil, err
	}
	argonHasher, err := password.NewArgon2(cfg.Argon2, cfg.Pepper)
	if err != nil {
		return nil, err
	}

	if cfg.Algorithm == HashArgon2id {
		return password.NewChain(argonHasher, bcryptHasher), nil
	}
	return password.NewChain(bcryptHasher, argonHasher), nil
}
