//go:build !gosseract

package ocr

import "errors"

func newGosseract(Config) (Engine, error) {
	return nil, errors.New("ocr engine gosseract requires building with -tags gosseract")
}
