package wfs_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatazurich/opendata-go/pkg/errs"
	"github.com/opendatazurich/opendata-go/pkg/wfs"
)

func TestIdentifierFromURL(t *testing.T) {
	testCases := []struct {
		name      string
		url       string
		expect    string
		expectErr bool
	}{
		{
			name:   "should extract the segment before the query string",
			url:    "https://www.ogd.stadt-zuerich.ch/geoportal/geo_alterswohnungen?format=10008",
			expect: "geo_alterswohnungen",
		},
		{
			name:   "should extract the last segment of a nested path",
			url:    "https://example.org/a/b/geo_brunnen?x=1&y=2",
			expect: "geo_brunnen",
		},
		{
			name:      "should fail when there is no query string",
			url:       "https://example.org/geoportal/geo_brunnen",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := wfs.IdentifierFromURL(tc.url)

			if tc.expectErr {
				require.ErrorIs(t, err, wfs.ErrExtraction)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestResolveEndpoint(t *testing.T) {
	const base = "https://www.ogd.stadt-zuerich.ch/wfs/geoportal"

	t.Run("should build the endpoint from the extracted identifier", func(t *testing.T) {
		got, err := wfs.ResolveEndpoint(base, "https://example.org/geoportal/geo_alterswohnungen?format=10008")

		require.NoError(t, err)
		assert.Equal(t, base+"/geo_alterswohnungen", got)
	})

	t.Run("should pass through urls that already target the wfs endpoint", func(t *testing.T) {
		got, err := wfs.ResolveEndpoint(base, base+"/geo_brunnen")

		require.NoError(t, err)
		assert.Equal(t, base+"/geo_brunnen", got)
	})

	t.Run("should fail on urls without identifier or wfs path", func(t *testing.T) {
		_, err := wfs.ResolveEndpoint(base, "https://example.org/download/brunnen.csv")

		require.Error(t, err)
		assert.True(t, errors.Is(err, wfs.ErrExtraction))
		assert.True(t, errs.KindIs(errs.InvalidRequest, err))
	})
}

const capabilitiesDoc = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:WFS_Capabilities version="1.1.0" xmlns:wfs="http://www.opengis.net/wfs">
  <FeatureTypeList>
    <FeatureType>
      <Name>brunnen</Name>
      <Title>Brunnen</Title>
    </FeatureType>
    <FeatureType>
      <Name>brunnen_label</Name>
      <Title>Beschriftung</Title>
    </FeatureType>
  </FeatureTypeList>
</wfs:WFS_Capabilities>`

func TestClient_Layers(t *testing.T) {
	t.Run("should list feature type names in document order", func(t *testing.T) {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "WFS", r.URL.Query().Get("service"))
			assert.Equal(t, "1.1.0", r.URL.Query().Get("version"))
			assert.Equal(t, "GetCapabilities", r.URL.Query().Get("request"))

			w.Header().Set("Content-Type", "text/xml")
			_, _ = w.Write([]byte(capabilitiesDoc))
		}))
		defer testServer.Close()

		client := wfs.New(http.DefaultClient, zerolog.Nop())

		got, err := client.Layers(context.Background(), testServer.URL+"/wfs/geoportal/brunnen")

		require.NoError(t, err)
		assert.Equal(t, []string{"brunnen", "brunnen_label"}, got)
	})

	t.Run("should return an IO error on server failure", func(t *testing.T) {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer testServer.Close()

		client := wfs.New(http.DefaultClient, zerolog.Nop())

		_, err := client.Layers(context.Background(), testServer.URL+"/wfs/geoportal/brunnen")

		require.Error(t, err)
		assert.True(t, errs.KindIs(errs.IO, err))
	})
}

func TestClient_GetFeature(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetFeature", r.URL.Query().Get("request"))
		assert.Equal(t, "brunnen", r.URL.Query().Get("typename"))
		assert.Equal(t, "application/json; subtype=geojson", r.URL.Query().Get("outputFormat"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{
					"type": "Feature",
					"geometry": {"type": "Point", "coordinates": [8.54, 47.37]},
					"properties": {"bezeichnung": "Lindenhof"}
				}
			]
		}`))
	}))
	defer testServer.Close()

	client := wfs.New(http.DefaultClient, zerolog.Nop())

	fc, err := client.GetFeature(context.Background(), testServer.URL+"/wfs/geoportal/brunnen", "brunnen")

	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Lindenhof", fc.Features[0].Properties["bezeichnung"])
}
