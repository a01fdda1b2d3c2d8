// Package events distributes inventory change notifications from the
// reference service to its subscribers.
package events

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Publisher delivers committed changes to some audience.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, model.ChangeEvent) error {
	return nil
}

// Multi fans an event out to several publishers. Every publisher is
// tried; the returned error joins the failures.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event model.ChangeEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
