package tokenrepo

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	DefaultKeyPrefix = "trigpoint:token:"
	DefaultMaxAge    = 30 * 24 * time.Hour
)

var _ session.TokenRepo = (*RedisRepo)(nil)

// RedisRepo stores tokens with a TTL taken from the token's expiry, or
// maxAge for tokens that carry none.
type RedisRepo struct {
	client redis.UniversalClient
	prefix string
	maxAge time.Duration
	codec  codec
}

type RedisOption func(*RedisRepo)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepo) { r.prefix = prefix }
}

func WithMaxAge(d time.Duration) RedisOption {
	return func(r *RedisRepo) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

func WithRedisSealer(s *Sealer) RedisOption {
	return func(r *RedisRepo) { r.codec.sealer = s }
}

func NewRedisRepo(client redis.UniversalClient, opts ...RedisOption) *RedisRepo {
	r := &RedisRepo{
		client: client,
		prefix: DefaultKeyPrefix,
		maxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepo) key(key string) string {
	return r.prefix + key
}

func (r *RedisRepo) Save(ctx context.Context, key string, tok *oauth2.Token) error {
	if err := validKey(key); err != nil {
		return err
	}

	ttl := r.maxAge
	if tok != nil && !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
		if ttl <= 0 {
			return errors.New("token is expired")
		}
	}

	data, err := r.codec.encode(tok)
	if err != nil {
		return err
	}
	return errors.Wrap(r.client.Set(ctx, r.key(key), data, ttl).Err(), "redis set")
}

func (r *RedisRepo) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "redis get")
	}

	tok, err := r.codec.decode(data)
	if err != nil {
		return nil, err
	}
	if expired(tok, time.Now()) {
		if err := r.Delete(ctx, key); err != nil {
			return nil, errors.Wrap(err, "cleanup expired token")
		}
		return nil, apperrors.ErrNotFound
	}
	return tok, nil
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return errors.Wrap(r.client.Del(ctx, r.key(key)).Err(), "redis del")
}
