package catalogue

import (
	"context"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/errs"
	"github.com/opendatazurich/opendata-go/pkg/table"
	"github.com/opendatazurich/opendata-go/pkg/wfs"
)

// PayloadResource is the capability shared by tabular and geo resource
// wrappers: metadata plus a payload fetched at most once per wrapper.
type PayloadResource interface {
	Metadata() ckan.Resource
	FetchPayload(ctx context.Context) (any, error)
}

var (
	_ PayloadResource = &TabularResource{}
	_ PayloadResource = &GeoResource{}
)

// TabularResource lazily downloads and decodes a CSV or parquet
// distribution.
type TabularResource struct {
	dataset *Dataset
	index   int
	meta    ckan.Resource

	mu    sync.Mutex
	table *table.Table
}

func newTabularResource(d *Dataset, index int, meta ckan.Resource) *TabularResource {
	return &TabularResource{
		dataset: d,
		index:   index,
		meta:    meta,
	}
}

func (r *TabularResource) Metadata() ckan.Resource {
	return r.meta
}

// Table downloads and decodes the payload on first call, later calls
// return the cached table.
func (r *TabularResource) Table(ctx context.Context) (*table.Table, error) {
	const op errs.Op = "catalogue.TabularResource.Table"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.table != nil {
		return r.table, nil
	}

	c := r.dataset.client

	t, err := table.Fetch(ctx, c.httpc, r.meta.URL, c.log)
	if err != nil {
		return nil, errs.E(op, err)
	}

	r.table = t

	return t, nil
}

func (r *TabularResource) FetchPayload(ctx context.Context) (any, error) {
	return r.Table(ctx)
}

// GeoResource lazily resolves a geoportal WFS endpoint and fetches its
// first layer as GeoJSON.
type GeoResource struct {
	dataset *Dataset
	index   int
	meta    ckan.Resource

	mu       sync.Mutex
	endpoint string
	layers   []string
	features *geojson.FeatureCollection
}

func newGeoResource(d *Dataset, index int, meta ckan.Resource) *GeoResource {
	return &GeoResource{
		dataset: d,
		index:   index,
		meta:    meta,
	}
}

func (r *GeoResource) Metadata() ckan.Resource {
	return r.meta
}

// Endpoint resolves the WFS endpoint for this resource, memoized.
func (r *GeoResource) Endpoint() (string, error) {
	const op errs.Op = "catalogue.GeoResource.Endpoint"

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.endpointLocked(op)
}

// Layers lists the WFS layers available for this resource, memoized.
func (r *GeoResource) Layers(ctx context.Context) ([]string, error) {
	const op errs.Op = "catalogue.GeoResource.Layers"

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.layersLocked(ctx, op)
}

// LayerFeatures fetches one named layer as a GeoJSON feature
// collection. Results are not cached, only the default first-layer
// fetch is.
func (r *GeoResource) LayerFeatures(ctx context.Context, layer string) (*geojson.FeatureCollection, error) {
	const op errs.Op = "catalogue.GeoResource.LayerFeatures"

	r.mu.Lock()
	endpoint, err := r.endpointLocked(op)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fc, err := r.wfsClient().GetFeature(ctx, endpoint, layer)
	if err != nil {
		return nil, errs.E(op, err)
	}

	return fc, nil
}

// Features returns the first layer as a GeoJSON feature collection,
// fetched at most once.
func (r *GeoResource) Features(ctx context.Context) (*geojson.FeatureCollection, error) {
	const op errs.Op = "catalogue.GeoResource.Features"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.features != nil {
		return r.features, nil
	}

	layers, err := r.layersLocked(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, errs.E(op, errs.NotExist, errs.Str("no layers available on "+r.endpoint))
	}

	endpoint, err := r.endpointLocked(op)
	if err != nil {
		return nil, err
	}

	fc, err := r.wfsClient().GetFeature(ctx, endpoint, layers[0])
	if err != nil {
		return nil, errs.E(op, err)
	}

	r.features = fc

	return fc, nil
}

func (r *GeoResource) FetchPayload(ctx context.Context) (any, error) {
	return r.Features(ctx)
}

// endpointLocked must be called with r.mu held.
func (r *GeoResource) endpointLocked(op errs.Op) (string, error) {
	if r.endpoint != "" {
		return r.endpoint, nil
	}

	endpoint, err := wfs.ResolveEndpoint(r.dataset.client.opts.GeoportalBaseURL, r.meta.URL)
	if err != nil {
		return "", errs.E(op, err)
	}

	r.endpoint = endpoint

	return endpoint, nil
}

// layersLocked must be called with r.mu held.
func (r *GeoResource) layersLocked(ctx context.Context, op errs.Op) ([]string, error) {
	if r.layers != nil {
		return r.layers, nil
	}

	endpoint, err := r.endpointLocked(op)
	if err != nil {
		return nil, err
	}

	layers, err := r.wfsClient().Layers(ctx, endpoint)
	if err != nil {
		return nil, errs.E(op, err)
	}

	r.layers = layers

	return layers, nil
}

func (r *GeoResource) wfsClient() *wfs.Client {
	c := r.dataset.client
	return wfs.New(c.httpc, c.log)
}
