// Package session stores records scoped to one browser session (the pending
// checkout confirmation) and the revocation list consulted on every request.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when a record is requested without a session id.
var ErrNoSession = errors.New("no session")

type Store interface {
	// Put stores v (JSON-encoded) under key for session sid.
	Put(ctx context.Context, sid, key string, v any, ttl time.Duration) error
	// Get decodes the record into dst; found is false when it is absent or expired.
	Get(ctx context.Context, sid, key string, dst any) (found bool, err error)
	Delete(ctx context.Context, sid, key string) error
	// Revoke marks sid as logged out for ttl.
	Revoke(ctx context.Context, sid string, ttl time.Duration) error
	Revoked(ctx context.Context, sid string) (bool, error)
}
