// Package qr renders pairing codes into a PNG artifact at a well-known
// path, overwriting the previous one on each regeneration.
package qr

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// Writer owns the QR artifact path.
type Writer struct {
	path string
}

// NewWriter creates a Writer for the given artifact path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the artifact location consumers read.
func (w *Writer) Path() string { return w.path }

// Write encodes code as a PNG, overwrites the artifact file, and returns
// the PNG bytes for observers that take the payload directly.
func (w *Writer) Write(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, imageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return nil, fmt.Errorf("create qr directory: %w", err)
	}
	if err := os.WriteFile(w.path, png, 0o644); err != nil {
		return nil, fmt.Errorf("write qr artifact: %w", err)
	}
	return png, nil
}

// Remove deletes a stale artifact. Missing files are not an error.
func (w *Writer) Remove() error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove qr artifact: %w", err)
	}
	return nil
}
