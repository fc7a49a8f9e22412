package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nzci/enrolbridge/app/models"
)

const (
	tokenKey       = "linkedin:token"
	statePrefix    = "linkedin:oauth_state:"
	redisCallLimit = 5 * time.Second
)

// RedisStore keeps the token slot and OAuth state nonces in redis, for
// deployments where the service runs more than one instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load() (*models.OAuthTokenBundle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallLimit)
	defer cancel()

	data, err := s.client.Get(ctx, tokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var bundle models.OAuthTokenBundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return nil, err
	}
	if bundle.AccessToken == "" {
		return nil, nil
	}
	return &bundle, nil
}

func (s *RedisStore) Save(bundle *models.OAuthTokenBundle) error {
	if bundle == nil {
		return errors.New("token bundle is required")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisCallLimit)
	defer cancel()
	return s.client.Set(ctx, tokenKey, data, 0).Err()
}

func (s *RedisStore) SaveState(state string, ttl time.Duration) error {
	if state == "" {
		return errors.New("state is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCallLimit)
	defer cancel()
	return s.client.Set(ctx, statePrefix+state, "1", ttl).Err()
}

func (s *RedisStore) ConsumeState(state string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallLimit)
	defer cancel()

	_, err := s.client.GetDel(ctx, statePrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
