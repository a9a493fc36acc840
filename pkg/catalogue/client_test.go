package catalogue_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatazurich/opendata-go/pkg/catalogue"
	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/errs"
)

// fakeAPI serves canned list pages keyed by offset and a single canned
// package.
type fakeAPI struct {
	pages     map[int][]ckan.Package
	pkg       *ckan.Package
	listErr   error
	showErr   error
	listCalls int
}

func (f *fakeAPI) ListPage(_ context.Context, limit, offset int) ([]ckan.Package, error) {
	f.listCalls++

	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.pages[offset], nil
}

func (f *fakeAPI) ShowPackage(_ context.Context, identifier string) (*ckan.Package, error) {
	if f.showErr != nil {
		return nil, f.showErr
	}
	if f.pkg == nil || (f.pkg.ID != identifier && f.pkg.Name != identifier) {
		return nil, errs.E(errs.Op("fakeAPI.ShowPackage"), errs.NotExist, errs.Str("no such package"))
	}

	return f.pkg, nil
}

func newTestClient(api ckan.Fetcher) *catalogue.Client {
	return catalogue.New(api, http.DefaultClient, catalogue.Options{
		PageSize:         2,
		PageDelay:        0,
		GeoportalBaseURL: "https://geoportal.example.org/wfs/geoportal",
	}, zerolog.Nop())
}

func TestClient_FetchFullCatalogue(t *testing.T) {
	t.Run("should concatenate pages, dedup by name and sort", func(t *testing.T) {
		api := &fakeAPI{
			pages: map[int][]ckan.Package{
				0: {
					{ID: "3", Name: "velo", Title: "Velozählung"},
					{ID: "1", Name: "bevoelkerung", Title: "Bevölkerung"},
				},
				2: {
					{ID: "1b", Name: "bevoelkerung", Title: "Duplicate, must lose"},
					{ID: "2", Name: "parkplatz", Title: "Parkplätze"},
				},
			},
		}

		got, err := newTestClient(api).FetchFullCatalogue(context.Background())

		require.NoError(t, err)

		// First seen record wins on duplicate names.
		expect := []ckan.Package{
			{ID: "1", Name: "bevoelkerung", Title: "Bevölkerung"},
			{ID: "2", Name: "parkplatz", Title: "Parkplätze"},
			{ID: "3", Name: "velo", Title: "Velozählung"},
		}
		if diff := cmp.Diff(expect, got); diff != "" {
			t.Errorf("catalogue mismatch (-expect +got):\n%s", diff)
		}

		// Two full pages plus the empty end marker page.
		assert.Equal(t, 3, api.listCalls)
	})

	t.Run("should abort the whole fetch on a page failure", func(t *testing.T) {
		api := &fakeAPI{
			listErr: errs.E(errs.Op("fakeAPI.ListPage"), errs.IO, errs.Str("boom")),
		}

		_, err := newTestClient(api).FetchFullCatalogue(context.Background())

		require.Error(t, err)
		assert.True(t, errs.KindIs(errs.IO, err))
	})
}

func TestClient_MemoizedViews(t *testing.T) {
	tabularOnly := ckan.Package{
		ID:   "1",
		Name: "bevoelkerung",
		Resources: []ckan.Resource{
			{ID: "r1", Format: "CSV", URL: "https://example.org/b.csv"},
		},
	}
	geoOnly := ckan.Package{
		ID:   "2",
		Name: "alterswohnungen",
		Resources: []ckan.Resource{
			{ID: "r2", Format: "WFS", URL: "https://example.org/geo?x=1"},
			{ID: "r3", Format: "JSON", URL: "https://example.org/geo.json"},
		},
	}
	neither := ckan.Package{
		ID:   "3",
		Name: "zonenplan",
		Resources: []ckan.Resource{
			{ID: "r4", Format: "PDF", URL: "https://example.org/plan.pdf"},
		},
	}

	newAPI := func() *fakeAPI {
		return &fakeAPI{
			pages: map[int][]ckan.Package{
				0: {tabularOnly, geoOnly},
				2: {neither},
			},
		}
	}

	t.Run("should fetch the catalogue once across all views", func(t *testing.T) {
		api := newAPI()
		client := newTestClient(api)

		full, err := client.Full(context.Background())
		require.NoError(t, err)
		assert.Len(t, full, 3)

		calls := api.listCalls

		_, err = client.Full(context.Background())
		require.NoError(t, err)
		_, err = client.Tabular(context.Background())
		require.NoError(t, err)
		_, err = client.Geo(context.Background())
		require.NoError(t, err)

		assert.Equal(t, calls, api.listCalls, "derived views must reuse the cached snapshot")
	})

	t.Run("should filter the tabular view and drop non-matching datasets", func(t *testing.T) {
		client := newTestClient(newAPI())

		tabular, err := client.Tabular(context.Background())

		require.NoError(t, err)
		require.Len(t, tabular, 1)
		assert.Equal(t, "bevoelkerung", tabular[0].Name)
		require.Len(t, tabular[0].Resources, 1)
		assert.Equal(t, "CSV", tabular[0].Resources[0].Format)
	})

	t.Run("should filter the geo view on strict WFS format", func(t *testing.T) {
		client := newTestClient(newAPI())

		geo, err := client.Geo(context.Background())

		require.NoError(t, err)
		require.Len(t, geo, 1)
		assert.Equal(t, "alterswohnungen", geo[0].Name)
		require.Len(t, geo[0].Resources, 1, "the JSON sibling is excluded at catalogue level")
		assert.Equal(t, "WFS", geo[0].Resources[0].Format)
	})

	t.Run("should not cache a failed fetch", func(t *testing.T) {
		api := newAPI()
		api.listErr = errs.E(errs.Op("fakeAPI.ListPage"), errs.IO, errs.Str("boom"))
		client := newTestClient(api)

		_, err := client.Full(context.Background())
		require.Error(t, err)

		api.listErr = nil

		full, err := client.Full(context.Background())
		require.NoError(t, err)
		assert.Len(t, full, 3)
	})
}

func TestClient_GetPackage(t *testing.T) {
	t.Run("should wrap the fetched package", func(t *testing.T) {
		api := &fakeAPI{
			pkg: &ckan.Package{ID: "1", Name: "bevoelkerung"},
		}

		dataset, err := newTestClient(api).GetPackage(context.Background(), "bevoelkerung")

		require.NoError(t, err)
		assert.Equal(t, "bevoelkerung", dataset.Metadata().Name)
	})

	t.Run("should pass through not exist", func(t *testing.T) {
		api := &fakeAPI{}

		_, err := newTestClient(api).GetPackage(context.Background(), "nope")

		require.Error(t, err)
		assert.True(t, errs.KindIs(errs.NotExist, err))
	})
}
