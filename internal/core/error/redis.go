package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// RedisNotFoundMessage describes a missing Redis key.
const RedisNotFoundMessage = "redis key not found"

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		e := New(err, http.StatusNotFound, RedisNotFoundMessage)
		e.Kind = KindCache
		return e
	}

	e := New(err, http.StatusBadGateway, RedisErrorMessage)
	e.Kind = KindCache
	return e
}
