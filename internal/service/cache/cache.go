package cache

import "time"

// BytesCache is a minimal cache API storing raw response bytes with TTL,
// used by the read-only stats endpoints.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
