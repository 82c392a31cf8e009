package scraping

import (
	"context"
	"errors"

	"regwatch/internal/model"
)

type SiteScraper interface {
	Source() string
	Scrape(ctx context.Context) ([]model.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, items []model.Item) error
}

// Notifiers fans a digest out to every channel. Each channel is attempted even
// if an earlier one fails; the failures are joined.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, items []model.Item) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.Notify(ctx, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
