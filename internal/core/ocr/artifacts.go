package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const (
	ctxKeyContentHash ctxKey = "ocr.content_hash_hex"
)

// WithContentHash stores the hex-encoded SHA256 of the document so rendered
// pages can be reused across calls for the same bytes.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// artifactCache keeps rendered page bitmaps under {dir}/{hash}-p{n}-{dpi}.png.
// A zero value (empty dir) disables caching.
type artifactCache struct {
	dir    string
	logger *slog.Logger
}

func (c artifactCache) path(hash string, page int, dpi int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-p%d-%d.png", hash, page, dpi))
}

func (c artifactCache) load(ctx context.Context, page, dpi int) ([]byte, bool) {
	hash, ok := contentHashFromCtx(ctx)
	if c.dir == "" || !ok {
		return nil, false
	}
	b, err := os.ReadFile(c.path(hash, page, dpi))
	if err != nil {
		return nil, false
	}
	c.logger.Debug("using cached page render", "page", page, "hash", hash)
	return b, true
}

// store persists via temp file + rename so concurrent writers never expose a
// partial PNG.
func (c artifactCache) store(ctx context.Context, page, dpi int, png []byte) {
	hash, ok := contentHashFromCtx(ctx)
	if c.dir == "" || !ok {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("artifact cache unavailable", "dir", c.dir, "error", err)
		return
	}
	tmp, err := os.CreateTemp(c.dir, "render-*.png")
	if err != nil {
		c.logger.Warn("artifact cache write failed", "error", err)
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(png); err != nil {
		_ = tmp.Close()
		c.logger.Warn("artifact cache write failed", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		c.logger.Warn("artifact cache write failed", "error", err)
		return
	}
	if err := os.Rename(tmp.Name(), c.path(hash, page, dpi)); err != nil {
		c.logger.Warn("artifact cache rename failed", "error", err)
	}
}
