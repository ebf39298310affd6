package obstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/domain/access"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey" or "redis"
	addrs     []string
	username  string
	password  string
	keyPrefix string

	index     string
	legacy    string
	legacySet bool
	opTimeout time.Duration

	defaultPageSize int
	maxPageSize     int

	policy    access.Policy
	policySet bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	err error
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithUsername sets the ACL user for the connection.
func WithUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithKeyPrefix namespaces every key the client writes. Default: "obs".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithIndexNames sets the index objects are stored in and the legacy index
// migrated into it on first use. An empty legacy name disables migration.
// Defaults: "observability" and "notebooks".
func WithIndexNames(index, legacy string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index = index
		c.legacy = legacy
		c.legacySet = true
	})
}

// WithOperationTimeout bounds every store call. Default: 30s.
func WithOperationTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.opTimeout = d
	})
}

// WithPageSize sets the default and maximum listing page size.
// Defaults: 100 and 10000.
func WithPageSize(defaultSize, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithAccessPolicy selects which grants restrict visibility within a tenant.
// adminRoles see every object of their tenant when adminViewsAll is set.
// Default: no filtering, "all_access" admins.
func WithAccessPolicy(filterBy FilterBy, adminRoles []string, adminViewsAll bool) Option {
	return optionFunc(func(c *clientConfig) {
		p, err := access.NewPolicy(filterBy, adminRoles, adminViewsAll)
		if err != nil {
			c.err = err
			return
		}
		c.policy = p
		c.policySet = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
