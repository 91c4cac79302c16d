package store

import (
	"context"

	"github.com/Popie52/pinger/internal/model"
)

// ResultStore persists the outcome of each request.
type ResultStore interface {
	Save(ctx context.Context, res *model.Result) error

	Close() error
}

// Nop is used when no store is configured.
type Nop struct{}

func (Nop) Save(context.Context, *model.Result) error { return nil }
func (Nop) Close() error                              { return nil }
