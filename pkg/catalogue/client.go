// Package catalogue orchestrates retrieval of the full dataset
// catalogue and exposes datasets with their resources as lazily
// fetching wrapper objects.
package catalogue

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/errs"
)

type Options struct {
	// PageSize is the number of packages requested per list call.
	PageSize int
	// PageDelay is the pause between successive list calls, so that a
	// full catalogue fetch does not hammer the remote API.
	PageDelay time.Duration
	// GeoportalBaseURL is where WFS resource URLs are rewritten to.
	GeoportalBaseURL string
}

// Client fetches the catalogue once and memoizes the full, tabular and
// geo views for its remaining lifetime. All views are safe for
// concurrent first access.
type Client struct {
	api   ckan.Fetcher
	httpc *http.Client
	opts  Options
	log   zerolog.Logger

	mu      sync.Mutex
	full    []ckan.Package
	tabular []ckan.Package
	geo     []ckan.Package
}

func New(api ckan.Fetcher, httpClient *http.Client, opts Options, log zerolog.Logger) *Client {
	return &Client{
		api:   api,
		httpc: httpClient,
		opts:  opts,
		log:   log,
	}
}

// FetchFullCatalogue pages through the list endpoint until an empty
// page is returned, then sorts the snapshot by dataset name and drops
// duplicate names, first occurrence wins. A failed page request aborts
// the whole fetch, there are no retries and no partial results.
func (c *Client) FetchFullCatalogue(ctx context.Context) ([]ckan.Package, error) {
	const op errs.Op = "catalogue.Client.FetchFullCatalogue"

	var all []ckan.Package

	offset := 0
	for {
		page, err := c.api.ListPage(ctx, c.opts.PageSize, offset)
		if err != nil {
			return nil, errs.E(op, err)
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		offset += c.opts.PageSize

		if err := sleep(ctx, c.opts.PageDelay); err != nil {
			return nil, errs.E(op, err)
		}
	}

	seen := make(map[string]bool, len(all))
	snapshot := make([]ckan.Package, 0, len(all))
	for _, p := range all {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		snapshot = append(snapshot, p)
	}

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Name < snapshot[j].Name
	})

	c.log.Info().Msgf("fetched catalogue snapshot with %d datasets", len(snapshot))

	return snapshot, nil
}

// Full returns the catalogue snapshot, fetching it on first access.
// Errors are not cached, a later call retries the fetch.
func (c *Client) Full(ctx context.Context) ([]ckan.Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fullLocked(ctx)
}

// Tabular returns the datasets that have at least one tabular
// distribution, with their resource lists narrowed to those
// distributions. Computed once on first access.
func (c *Client) Tabular(ctx context.Context) ([]ckan.Package, error) {
	const op errs.Op = "catalogue.Client.Tabular"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tabular != nil {
		return c.tabular, nil
	}

	full, err := c.fullLocked(ctx)
	if err != nil {
		return nil, errs.E(op, err)
	}

	c.tabular = filterByDistribution(full, TabularDistributions)

	return c.tabular, nil
}

// Geo returns the datasets that have at least one WFS distribution,
// with their resource lists narrowed to those distributions. Computed
// once on first access.
func (c *Client) Geo(ctx context.Context) ([]ckan.Package, error) {
	const op errs.Op = "catalogue.Client.Geo"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.geo != nil {
		return c.geo, nil
	}

	full, err := c.fullLocked(ctx)
	if err != nil {
		return nil, errs.E(op, err)
	}

	c.geo = filterByDistribution(full, GeoDistributions)

	return c.geo, nil
}

// GetPackage fetches a single dataset by id or name and wraps it.
func (c *Client) GetPackage(ctx context.Context, identifier string) (*Dataset, error) {
	const op errs.Op = "catalogue.Client.GetPackage"

	pkg, err := c.api.ShowPackage(ctx, identifier)
	if err != nil {
		return nil, errs.E(op, err)
	}

	return newDataset(c, *pkg), nil
}

// fullLocked must be called with c.mu held.
func (c *Client) fullLocked(ctx context.Context) ([]ckan.Package, error) {
	if c.full != nil {
		return c.full, nil
	}

	snapshot, err := c.FetchFullCatalogue(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = []ckan.Package{}
	}

	c.full = snapshot

	return c.full, nil
}

func filterByDistribution(packages []ckan.Package, keep func([]ckan.Resource) []ckan.Resource) []ckan.Package {
	filtered := make([]ckan.Package, 0, len(packages))
	for _, p := range packages {
		matched := keep(p.Resources)
		if matched == nil {
			continue
		}

		p.Resources = matched
		filtered = append(filtered, p)
	}

	return filtered
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
