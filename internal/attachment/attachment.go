// Package attachment manages the single binary attachment (photo) an entity
// may carry. Bytes live in an external ObjectStore; the entity only keeps the
// returned location.
package attachment

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Entity kinds used as key prefixes.
const (
	KindUser         = "user"
	KindOrganization = "organization"
)

// ObjectStore stores and deletes blobs by key.
type ObjectStore interface {
	// Upload writes body under key, overwriting any previous object, and
	// returns the location clients can fetch it from.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// Remove deletes the object at key.
	Remove(ctx context.Context, key string) error
}

// File is an incoming upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Lifecycle orchestrates replace and remove of attachments.
type Lifecycle struct {
	store ObjectStore
	log   *zap.Logger
}

// New constructs a Lifecycle.
func New(store ObjectStore, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{store: store, log: log}
}

// Key derives the storage key {kind}/{id}.{ext}. Re-uploads for the same
// entity and extension hit the same key.
func Key(kind string, id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s.%s", kind, id, extension(filename))
}

func extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return "bin"
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "bin"
		}
	}
	return ext
}

// Replace uploads f and then calls persist with the new location. A failed
// upload returns before persist runs, so the previous attachment stays intact.
func (l *Lifecycle) Replace(ctx context.Context, kind string, id uuid.UUID, f File, persist func(ctx context.Context, location string) error) (string, error) {
	key := Key(kind, id, f.Name)
	loc, err := l.store.Upload(ctx, key, f.Body, f.Size, f.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := persist(ctx, loc); err != nil {
		return "", err
	}
	return loc, nil
}

// Remove deletes the object behind current and then calls clear. When current
// is nil nothing happens and false is returned. A failed deletion is logged
// and does not keep the reference: clear still runs.
func (l *Lifecycle) Remove(ctx context.Context, kind string, current *string, clear func(ctx context.Context) error) (bool, error) {
	if current == nil {
		return false, nil
	}
	key := RemovalKey(kind, *current)
	if err := l.store.Remove(ctx, key); err != nil {
		l.log.Warn("attachment removal failed; reference cleared anyway",
			zap.String("key", key), zap.Error(err))
	}
	if err := clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RemovalKey maps a stored location back to its key: {kind}/{last path segment}.
func RemovalKey(kind, location string) string {
	p := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		p = u.Path
	}
	return kind + "/" + path.Base(p)
}
