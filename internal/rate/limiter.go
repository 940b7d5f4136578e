package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds sliding-window budgets.
type Config struct {
	LoginLimit         int
	LoginWindow        time.Duration
	OTPHourlyLimit     int
	OTPDailyLimit      int
	RegistrationLimit  int
	RegistrationWindow time.Duration
}

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter enforces sliding-window budgets stored as Redis sorted sets. Each hit is a
// member scored by its timestamp; members older than the window are trimmed before
// counting, all inside one script invocation.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// slidingWindowScript returns {allowed, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
if count >= limit then
	local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
	local retry = window
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	if retry < 1 then
		retry = 1
	end
	return {0, retry}
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return {1, 0}
`)

// New creates a Limiter. now may be nil.
func New(redisClient redis.UniversalClient, cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    now,
	}
}

// AllowLogin consumes one pre-credential login attempt for the address+identity pair.
func (l *Limiter) AllowLogin(ctx context.Context, address, identity string) (Decision, error) {
	return l.allow(ctx, loginKey(address, identity), l.config.LoginLimit, l.config.LoginWindow)
}

// AllowOTPHourly consumes one code issuance from the identity's hourly budget.
func (l *Limiter) AllowOTPHourly(ctx context.Context, identity string) (Decision, error) {
	return l.allow(ctx, otpHourlyKey(identity), l.config.OTPHourlyLimit, time.Hour)
}

// AllowOTPDaily consumes one code issuance from the identity's daily budget.
func (l *Limiter) AllowOTPDaily(ctx context.Context, identity string) (Decision, error) {
	return l.allow(ctx, otpDailyKey(identity), l.config.OTPDailyLimit, 24*time.Hour)
}

// AllowRegistration consumes one self-registration from the address's budget.
func (l *Limiter) AllowRegistration(ctx context.Context, address string) (Decision, error) {
	return l.allow(ctx, registrationKey(address), l.config.RegistrationLimit, l.config.RegistrationWindow)
}

func (l *Limiter) allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, l.redis, []string{key},
		now, window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}

func loginKey(address, identity string) string {
	return "rl:login:" + identity + "|" + address
}

func otpHourlyKey(identity string) string {
	return "rl:otph:" + identity
}

func otpDailyKey(identity string) string {
	return "rl:otpd:" + identity
}

func registrationKey(address string) string {
	return "rl:reg:" + address
}
