package auth

import (
	"context"
	"errors"
	"testing"
)

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "no claims",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "nil claims",
			ctx:      context.WithValue(context.Background(), ClaimsKey, (*Claims)(nil)),
			expected: "",
		},
		{
			name: "subject present",
			ctx: func() context.Context {
				claims := &Claims{}
				claims.Subject = "3f1c2a9e-user"
				return WithClaims(context.Background(), claims, "")
			}(),
			expected: "3f1c2a9e-user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetUserIDFromContext(tt.ctx); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRequireUserIDFromContext(t *testing.T) {
	_, err := RequireUserIDFromContext(context.Background())
	if !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}

	claims := &Claims{}
	claims.Subject = "user-1"
	userID, err := RequireUserIDFromContext(WithClaims(context.Background(), claims, "t"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
}
