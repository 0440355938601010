package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if db.gormEngine is not one of mysql, postgres or sqlite.
	ErrUnknownDBEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrEmptySQLitePath error if the sqlite engine is selected without a db.path.
	ErrEmptySQLitePath = errors.New("toml config db.path can not be empty for sqlite")

	// ErrEmptyTokenSecret error if auth.tokenSecret is empty outside of dev mode.
	ErrEmptyTokenSecret = errors.New("toml config auth.tokenSecret can not be empty")

	// ErrNegativeDuration error if one of the auth durations is negative.
	ErrNegativeDuration = errors.New("toml config auth durations can not be negative")

	// ErrUnknownCacheBackend error if cache.backend is not one of none, memory or redis.
	ErrUnknownCacheBackend = errors.New("toml config cache.backend must be none, memory or redis")

	// ErrNegativeCacheSetting error if cache.size or cache.ttl is negative.
	ErrNegativeCacheSetting = errors.New("toml config cache.size and cache.ttl can not be negative")

	// ErrEmptyRedisAddr error if the redis cache backend is selected without an address.
	ErrEmptyRedisAddr = errors.New("toml config cache.redis.addr can not be empty")
)
