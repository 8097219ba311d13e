// Package storage holds uploaded logos. Objects are addressed by a
// slash-separated key and served back through a public URL.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reportly-app/reportly/pkg/apperrors"
)

// Store puts and fetches objects.
type Store interface {
	// Put stores data under key, replacing any existing object, and returns
	// the URL the object can be fetched from.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Get returns the object's bytes and content type. Missing objects
	// return an error wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// LogoKey builds the storage key for a user's uploaded logo:
// <userID>/<unixMillis>-<fileName>.
func LogoKey(userID string, at time.Time, fileName string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, fileName)
	return fmt.Sprintf("%s/%d-%s", userID, at.UnixMilli(), name)
}

// AvatarKey builds the storage key for a user's avatar:
// avatars/<userID>-<id><ext>.
func AvatarKey(userID, id, ext string) string {
	return fmt.Sprintf("avatars/%s-%s%s", userID, id, ext)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return apperrors.Validation("invalid storage key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return apperrors.Validation("invalid storage key %q", key)
		}
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("object %q: %w", key, apperrors.ErrNotFound)
}
