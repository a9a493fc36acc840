package catalogue

import (
	"fmt"
	"sync"

	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/errs"
)

// Dataset wraps one package record and resolves its resources into
// lazily fetching payload wrappers. The derived resource views are each
// computed once and cached for the lifetime of the wrapper.
type Dataset struct {
	client *Client
	meta   ckan.Package

	mu            sync.Mutex
	resourceTable []ckan.Resource
	tabular       []ckan.Resource
	geo           []ckan.Resource
}

func newDataset(c *Client, meta ckan.Package) *Dataset {
	return &Dataset{
		client: c,
		meta:   meta,
	}
}

func (d *Dataset) Metadata() ckan.Package {
	return d.meta
}

// DistributionLinks returns the URL of every resource in the dataset.
func (d *Dataset) DistributionLinks() []string {
	return d.meta.ResourceURLs()
}

// ResourceTable returns one row per resource embedded in the dataset
// record.
func (d *Dataset) ResourceTable() []ckan.Resource {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.resourceTable == nil {
		d.resourceTable = make([]ckan.Resource, len(d.meta.Resources))
		copy(d.resourceTable, d.meta.Resources)
	}

	return d.resourceTable
}

// TabularResources returns the rows of the resource table whose format
// is CSV or parquet. Cached independently of ResourceTable.
func (d *Dataset) TabularResources() []ckan.Resource {
	table := d.ResourceTable()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tabular == nil {
		d.tabular = TabularDistributions(table)
		if d.tabular == nil {
			d.tabular = []ckan.Resource{}
		}
	}

	return d.tabular
}

// GeoResources returns the rows of the resource table in the broader
// per-dataset geo format set (WFS or JSON). Cached independently of
// ResourceTable.
func (d *Dataset) GeoResources() []ckan.Resource {
	table := d.ResourceTable()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.geo == nil {
		d.geo = DatasetGeoDistributions(table)
		if d.geo == nil {
			d.geo = []ckan.Resource{}
		}
	}

	return d.geo
}

// TabularResource resolves one tabular resource by positional index
// into the tabular view.
func (d *Dataset) TabularResource(index int) (*TabularResource, error) {
	const op errs.Op = "catalogue.Dataset.TabularResource"

	resources := d.TabularResources()
	if index < 0 || index >= len(resources) {
		return nil, errs.E(op, errs.NotExist, errs.Str(fmt.Sprintf("no tabular resource at index %d, dataset %s has %d", index, d.meta.Name, len(resources))))
	}

	return newTabularResource(d, index, resources[index]), nil
}

// TabularResourceByID resolves one tabular resource by its id.
func (d *Dataset) TabularResourceByID(id string) (*TabularResource, error) {
	const op errs.Op = "catalogue.Dataset.TabularResourceByID"

	for i, r := range d.TabularResources() {
		if r.ID == id {
			return newTabularResource(d, i, r), nil
		}
	}

	return nil, errs.E(op, errs.NotExist, errs.Str(fmt.Sprintf("no tabular resource with id %s in dataset %s", id, d.meta.Name)))
}

// GeoResource resolves one geo resource by positional index into the
// geo view.
func (d *Dataset) GeoResource(index int) (*GeoResource, error) {
	const op errs.Op = "catalogue.Dataset.GeoResource"

	resources := d.GeoResources()
	if index < 0 || index >= len(resources) {
		return nil, errs.E(op, errs.NotExist, errs.Str(fmt.Sprintf("no geo resource at index %d, dataset %s has %d", index, d.meta.Name, len(resources))))
	}

	return newGeoResource(d, index, resources[index]), nil
}

// GeoResourceByID resolves one geo resource by its id.
func (d *Dataset) GeoResourceByID(id string) (*GeoResource, error) {
	const op errs.Op = "catalogue.Dataset.GeoResourceByID"

	for i, r := range d.GeoResources() {
		if r.ID == id {
			return newGeoResource(d, i, r), nil
		}
	}

	return nil, errs.E(op, errs.NotExist, errs.Str(fmt.Sprintf("no geo resource with id %s in dataset %s", id, d.meta.Name)))
}
