package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserScope wraps a connection pinned to one owning user. The connection has
// app.current_user_id set so row-level security policies can evaluate it, and
// repositories additionally filter every statement by UserID.
type UserScope struct {
	Conn   *pgxpool.Conn
	UserID string
}

// Close resets the user context and releases the connection to the pool.
// This MUST be called to prevent user context leaking to the next request.
func (s *UserScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_user_id")
	s.Conn.Release()
}

// WithUser acquires a connection and pins it to the given user.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithUser(ctx context.Context, userID string) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_user_id', $1, false)", userID)
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &UserScope{Conn: conn, UserID: userID}, nil
}
