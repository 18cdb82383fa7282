package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cafe-orders/internal/apperror"

	"github.com/redis/go-redis/v9"
)

const (
	Header = "Idempotency-Key"

	maxKeyLength = 255
	pendingValue = "pending"
)

var (
	// ErrInProgress is returned while another request holds the same key
	ErrInProgress = apperror.New(apperror.Conflict, "a request with this idempotency key is still in progress")
	// ErrKeyMismatch is returned when a key is reused for a different request
	ErrKeyMismatch = apperror.New(apperror.Conflict, "idempotency key was already used for a different request")
	// ErrDuplicate is returned when a concurrent request recorded the key first
	ErrDuplicate = apperror.New(apperror.Conflict, "an order with this idempotency key already exists")
)

// Key returns the trimmed idempotency key of r, or "" when absent
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// ValidateKey rejects keys that are too long to store
func ValidateKey(key string) error {
	if len(key) > maxKeyLength {
		return apperror.ValidationError{
			Field:   Header,
			Message: fmt.Sprintf("must not exceed %d characters", maxKeyLength),
		}
	}
	return nil
}

// HashRequest fingerprints a decoded request body. Formatting differences in
// the original JSON do not change the hash.
func HashRequest(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to hash request: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Record is the order a key produced and the request that produced it
type Record struct {
	OrderID     int64
	RequestHash string
}

// Check reports ErrKeyMismatch when hash is not the recorded request
func (r Record) Check(hash string) error {
	if r.RequestHash != hash {
		return ErrKeyMismatch
	}
	return nil
}

// Reservation is the outcome of claiming a key. When Reserved is false the
// key already completed and Record is what it produced.
type Reservation struct {
	Reserved bool
	Record   Record
}

// Store guards a key while its request runs and caches the finished record
type Store interface {
	Reserve(ctx context.Context, key string) (Reservation, error)
	Complete(ctx context.Context, key string, rec Record) error
	Release(ctx context.Context, key string) error
}

// RedisStore keeps keys in Redis. A pending claim lives for pendingTTL so a
// crashed request frees its key quickly; completed records live for ttl.
type RedisStore struct {
	client     *redis.Client
	pendingTTL time.Duration
	ttl        time.Duration
	prefix     string
}

func NewRedisStore(client *redis.Client, pendingTTL, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, pendingTTL: pendingTTL, ttl: ttl, prefix: "idempotency:order:"}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (Reservation, error) {
	k := s.prefix + key

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pendingValue, s.pendingTTL).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return Reservation{Reserved: true}, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			continue
		}
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if val == pendingValue {
			return Reservation{}, ErrInProgress
		}

		rec, err := decodeRecord(val)
		if err != nil {
			return Reservation{}, err
		}
		return Reservation{Record: rec}, nil
	}

	return Reservation{}, ErrInProgress
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	if err := s.client.Set(ctx, s.prefix+key, encodeRecord(rec), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// encodeRecord stores "<order id>:<request hash>"
func encodeRecord(rec Record) string {
	return strconv.FormatInt(rec.OrderID, 10) + ":" + rec.RequestHash
}

func decodeRecord(val string) (Record, error) {
	id, hash, _ := strings.Cut(val, ":")
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("corrupt idempotency record %q: %w", val, err)
	}
	return Record{OrderID: orderID, RequestHash: hash}, nil
}
