package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Engine turns one page bitmap into text.
type Engine interface {
	Init(ctx context.Context) error
	Recognize(ctx context.Context, png []byte) (string, error)
	Close() error
}

// TesseractCLI pipes PNG bytes through the tesseract binary.
type TesseractCLI struct {
	Binary      string
	Languages   string
	TessdataDir string
	Runner      Runner
	Logger      *slog.Logger
}

func (t *TesseractCLI) defaults() {
	if t.Binary == "" {
		t.Binary = "tesseract"
	}
	if t.Languages == "" {
		t.Languages = DefaultLanguages
	}
	if t.Runner == nil {
		t.Runner = ExecRunner{}
	}
	if t.Logger == nil {
		t.Logger = slog.Default()
	}
}

// Init checks that the binary runs and that every requested language is installed.
func (t *TesseractCLI) Init(ctx context.Context) error {
	t.defaults()
	args := []string{"--list-langs"}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	out, errb, err := t.Runner.Run(ctx, t.Binary, t.Logger, nil, args...)
	if err != nil {
		return fmt.Errorf("tesseract unavailable: %w: %s", err, truncate(string(errb), 512))
	}
	installed := map[string]bool{}
	// older builds print the list on stderr
	for _, ln := range strings.Split(string(out)+"\n"+string(errb), "\n") {
		installed[strings.TrimSpace(ln)] = true
	}
	for _, lang := range strings.Split(t.Languages, "+") {
		if !installed[lang] {
			return fmt.Errorf("tesseract language %q not installed", lang)
		}
	}
	return nil
}

func (t *TesseractCLI) Recognize(ctx context.Context, png []byte) (string, error) {
	args := []string{"stdin", "stdout", "-l", t.Languages}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	// tesseract stdin stdout -l deu+eng
	out, errb, err := t.Runner.Run(ctx, t.Binary, t.Logger, png, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (t *TesseractCLI) Close() error { return nil }
