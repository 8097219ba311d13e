package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserScope wraps a connection with the acting user set for row-level security.
// The connection has app.current_user_id set for RLS policy evaluation.
type UserScope struct {
	Conn *pgxpool.Conn
}

// Close resets the user context and releases the connection to the pool.
// This MUST be called so the user context cannot leak into the next request.
func (s *UserScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_user_id")
	s.Conn.Release()
}

// WithUser acquires a connection and sets the acting user for RLS.
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

	return &UserScope{Conn: conn}, nil
}

// WithoutUser acquires a connection with no user context. RLS policies let
// such connections see every row, so use it only for maintenance paths.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithoutUser(ctx context.Context) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &UserScope{Conn: conn}, nil
}
