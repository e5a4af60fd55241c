//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in-process. Requires the gosseract build tag.
type Gosseract struct {
	Languages string

	mu     sync.Mutex
	client *gosseract.Client
}

func newGosseract(cfg Config) (Engine, error) {
	return &Gosseract{Languages: cfg.Languages}, nil
}

func (g *Gosseract) Init(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = gosseract.NewClient()
	langs := g.Languages
	if langs == "" {
		langs = DefaultLanguages
	}
	if err := g.client.SetLanguage(strings.Split(langs, "+")...); err != nil {
		_ = g.client.Close()
		g.client = nil
		return fmt.Errorf("gosseract language: %w", err)
	}
	return nil
}

// Recognize serializes calls; a tesseract client is not safe for concurrent use.
func (g *Gosseract) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return "", ErrNotInitialized
	}
	if err := g.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("gosseract image: %w", err)
	}
	txt, err := g.client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return txt, nil
}

func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
