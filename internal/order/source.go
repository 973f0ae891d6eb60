package order

import (
	"context"
	"time"
)

// Source supplies the full order set on demand. Implementations must be safe
// for concurrent use.
type Source interface {
	Orders(ctx context.Context) ([]Order, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Order, error)

// Orders calls f.
func (f SourceFunc) Orders(ctx context.Context) ([]Order, error) {
	return f(ctx)
}

// FileSource re-reads an orders file on every call.
type FileSource struct {
	Path string
	// Location applies to timestamps without an offset; nil means time.Local.
	Location *time.Location
}

// Orders loads the file, discarding load statistics.
func (s FileSource) Orders(ctx context.Context) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders, _, err := LoadFile(s.Path, s.Location)
	return orders, err
}
