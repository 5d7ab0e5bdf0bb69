package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/newsdex/internal/db"
)

var _ db.Store = (*Store)(nil)

// Flavor selects server-specific query behaviour.
type Flavor string

const (
	// FlavorRedis is Redis 8+ with the query engine (FT.SEARCH with bare filters).
	FlavorRedis Flavor = "redis"
	// FlavorValkey is Valkey with valkey-search, which only answers KNN queries.
	FlavorValkey Flavor = "valkey"
)

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Flavor   Flavor
}

// Store implements db.Store via rueidis.
type Store struct {
	client rueidis.Client
	flavor Flavor
}

// NewStore connects with RESP2 and client-side caching off; FT.SEARCH
// replies are parsed as RESP2 arrays. Flavor defaults to FlavorRedis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	switch cfg.Flavor {
	case "":
		cfg.Flavor = FlavorRedis
	case FlavorRedis, FlavorValkey:
	default:
		return nil, fmt.Errorf("unknown flavor %q", cfg.Flavor)
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client, flavor: cfg.Flavor}, nil
}

// Flavor reports which server dialect the store speaks.
func (s *Store) Flavor() Flavor { return s.flavor }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) Close() { s.client.Close() }

// readyPollInterval spaces PINGs while waiting for the server.
const readyPollInterval = 100 * time.Millisecond

// WaitForReady pings right away and then every readyPollInterval until the
// server answers or timeout elapses. Servers still loading their dataset
// answer PING with an error.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		last := s.Ping(ctx)
		if last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("store not ready after %s (last: %v): %w", timeout, last, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder { return s.client.B() }

// isRedisErr reports whether err is a server error reply mentioning substr.
func isRedisErr(err error, substr string) bool {
	if re, ok := rueidis.IsRedisErr(err); ok {
		return containsIgnoreCase(re.Error(), substr)
	}
	return false
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
