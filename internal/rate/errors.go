package rate

import "errors"

// ErrRedisUnavailable wraps any Redis failure during a limiter check.
var ErrRedisUnavailable = errors.New("redis unavailable")
