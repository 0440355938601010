package config

import (
	"time"

	"github.com/newsdesk-cms/newsdesk/internal/logger"
)

// Permission cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Cache     Cache
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}

// Auth holds the identity token and access decision settings.
type Auth struct {
	TokenSecret     string        // HMAC secret for signing identity tokens
	TokenTTL        time.Duration // token lifetime, DefaultTokenTTL if unset
	ClockSkew       time.Duration // leeway for exp/iat/nbf checks, DefaultClockSkew if unset
	Issuer          string        // iss claim
	DecisionTimeout time.Duration // upper bound for one access decision, 0 disables
	CheckActive     bool          // reject tokens of users deactivated after login
}

// Cache holds the permission resolution cache settings.
type Cache struct {
	Backend string        // none, memory or redis
	Size    int           // max roles in the memory backend
	TTL     time.Duration // upper bound for one cached permission set
	Redis   Redis
}

// Redis connection settings for the redis cache backend.
type Redis struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Seed holds the initial administrator account.
type Seed struct {
	AdminEmail     string
	AdminPassword  string // generated and logged once if empty
	AdminFirstName string
	AdminLastName  string
}
