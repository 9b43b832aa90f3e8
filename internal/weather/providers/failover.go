package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/i474232898/weathercrow/internal/weather"
)

var errNoFetchers = errors.New("no weather fetchers configured")

// Failover tries each fetcher in order and returns the first record obtained.
type Failover struct {
	fetchers []weather.Fetcher
}

func NewFailover(fetchers ...weather.Fetcher) *Failover {
	var fs []weather.Fetcher
	for _, f := range fetchers {
		if f != nil {
			fs = append(fs, f)
		}
	}
	return &Failover{fetchers: fs}
}

func (f *Failover) Name() string {
	names := make([]string, 0, len(f.fetchers))
	for _, p := range f.fetchers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (f *Failover) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	if len(f.fetchers) == 0 {
		return nil, errNoFetchers
	}

	var errs []error
	for _, p := range f.fetchers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		raw, err := p.Fetch(ctx, loc)
		if err == nil {
			return raw, nil
		}
		log.Printf("fetcher %s failed for %s: %v", p.Name(), loc.Key(), err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, errors.Join(errs...)
}
