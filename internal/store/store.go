package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CredentialKey is the single key the API key is stored under
const CredentialKey = "openai_api_key"

// Store is the key/value collaborator used for the credential
type Store interface {
	// Get returns the value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Durable reports whether values survive a process restart
	Durable() bool
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Type string // "memory", "gcs" or "redis"

	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CheckTimeout bounds the reachability check done by Resolve
	CheckTimeout time.Duration
}

// checker is implemented by backends that can verify they are reachable
type checker interface {
	Check(ctx context.Context) error
}

// Open creates the configured backend without checking it
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "gcs":
		return NewGCSStore(ctx, opts.GCSBucket, opts.GCSPrefix, opts.GCSCredentialsFile)
	case "redis":
		return NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", opts.Type)
	}
}

// Resolve opens the configured backend once at startup and verifies it
// is usable. When it is not, an in-memory store is returned instead so
// the caller always has a working collaborator.
func Resolve(ctx context.Context, opts Options, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Second
	}

	st, err := Open(ctx, opts)
	if err != nil {
		logger.Warn("credential storage unavailable, keeping keys in memory only",
			zap.String("type", opts.Type), zap.Error(err))
		return NewMemoryStore()
	}

	if c, ok := st.(checker); ok {
		checkCtx, cancel := context.WithTimeout(ctx, opts.CheckTimeout)
		defer cancel()

		if err := c.Check(checkCtx); err != nil {
			logger.Warn("credential storage unreachable, keeping keys in memory only",
				zap.String("type", opts.Type), zap.Error(err))
			_ = st.Close()
			return NewMemoryStore()
		}
	}

	logger.Info("credential storage ready", zap.String("type", opts.Type), zap.Bool("durable", st.Durable()))
	return st
}
