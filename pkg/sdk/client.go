package obstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/obstore/internal/db"
	dbRedis "github.com/kailas-cloud/obstore/internal/db/redis"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
	objectrepo "github.com/kailas-cloud/obstore/internal/repository/object"
	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for fakes in tests.
type objectUseCase interface {
	IncludeAccess(u *access.User) bool
	Create(ctx context.Context, u *access.User, obj domobj.Object) (string, error)
	Get(ctx context.Context, u *access.User, id string) (envelope.DocInfo, error)
	GetMany(ctx context.Context, u *access.User, ids []string) ([]envelope.DocInfo, error)
	Update(ctx context.Context, u *access.User, id string, obj domobj.Object) error
	Delete(ctx context.Context, u *access.User, ids []string) (map[string]db.BulkStatus, error)
	List(ctx context.Context, u *access.User, req objectuc.ListRequest) (objectuc.Page, error)
}

type connection interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the obstore SDK entry point.
type Client struct {
	conn      connection
	objectSvc objectUseCase
	healthSvc healthUseCase
	ins       *instruments
}

// New creates a Client, connects to the database and prepares the object
// index. The provided context is used for the readiness check and for the
// legacy index migration, if one is pending.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.err != nil {
		return nil, fmt.Errorf("obstore: %w", cfg.err)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("obstore: database address required (use WithRedis or WithValkey)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("obstore: database not ready: %w", err)
	}

	ins, err := newInstruments(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	client, repo, err := wireClient(store, cfg, ins)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("obstore: prepare index: %w", err)
	}
	return client, nil
}

// createStore opens the rueidis store. Valkey speaks the same search and
// JSON commands, so both drivers share one implementation.
func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.addrs,
			Username:  cfg.username,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("obstore: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("obstore: unknown driver %q", cfg.driver)
	}
}

func wireClient(store *dbRedis.Store, cfg *clientConfig, ins *instruments) (*Client, *objectrepo.Repo, error) {
	logger := cfg.logger
	registry := domobj.Default()
	codec := envelope.NewCodec(registry, logger)

	var repoOpts []objectrepo.Option
	if cfg.index != "" || cfg.legacySet {
		index := cfg.index
		if index == "" {
			index = objectrepo.DefaultIndex
		}
		repoOpts = append(repoOpts, objectrepo.WithIndexNames(index, cfg.legacy))
	}
	if cfg.opTimeout > 0 {
		repoOpts = append(repoOpts, objectrepo.WithOperationTimeout(cfg.opTimeout))
	}
	if logger != nil {
		repoOpts = append(repoOpts, objectrepo.WithLogger(logger.Named("repository")))
	}
	repo, err := objectrepo.New(store, codec, repoOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("obstore: %w", err)
	}

	policy := access.DefaultPolicy()
	if cfg.policySet {
		policy = cfg.policy
	}
	builder := query.NewBuilder(registry, query.WithPageSize(cfg.defaultPageSize, cfg.maxPageSize))

	return &Client{
		conn:      store,
		objectSvc: objectuc.New(repo, builder, policy),
		healthSvc: healthuc.New(store, repo),
		ins:       ins,
	}, repo, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	defer c.ins.track("ping")(&err)

	if err = c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Objects returns the object service.
func (c *Client) Objects() *ObjectService {
	return &ObjectService{svc: c.objectSvc, ins: c.ins}
}
