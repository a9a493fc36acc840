// Package wfs implements a minimal client for version 1.1.0 of the Web
// Feature Service protocol, enough to list the layers of a geoportal
// endpoint and fetch one layer as GeoJSON.
package wfs

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/opendatazurich/opendata-go/pkg/errs"
)

const (
	// Version is the WFS protocol version the geoportal speaks.
	Version = "1.1.0"

	geojsonOutputFormat = "application/json; subtype=geojson"
)

// ErrExtraction is returned when the geoportal identifier cannot be
// derived from a resource URL.
var ErrExtraction = errs.Str("could not extract identifier from url")

// The identifier is the path segment right before the query string,
// e.g. ".../geo_alterswohnungen?format=10008" yields geo_alterswohnungen.
var identifierPattern = regexp.MustCompile(`/([^/?]+)\?`)

// IdentifierFromURL extracts the geoportal identifier from a catalogue
// resource URL.
func IdentifierFromURL(rawURL string) (string, error) {
	m := identifierPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", ErrExtraction
	}

	return m[1], nil
}

// ResolveEndpoint converts a catalogue resource URL into a geoportal
// WFS endpoint. URLs that already target the WFS endpoint pass through
// unchanged.
func ResolveEndpoint(geoportalBaseURL, rawURL string) (string, error) {
	const op errs.Op = "wfs.ResolveEndpoint"

	identifier, err := IdentifierFromURL(rawURL)
	if err != nil {
		if strings.Contains(rawURL, "/wfs/") {
			return rawURL, nil
		}

		return "", errs.E(op, errs.InvalidRequest, errs.Parameter("url"), err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(geoportalBaseURL, "/"), identifier), nil
}

type Client struct {
	client *http.Client
	log    zerolog.Logger
}

type capabilities struct {
	FeatureTypes []featureType `xml:"FeatureTypeList>FeatureType"`
}

type featureType struct {
	Name  string `xml:"Name"`
	Title string `xml:"Title"`
}

// Layers lists the feature type names the endpoint serves, in
// capability document order.
func (c *Client) Layers(ctx context.Context, endpoint string) ([]string, error) {
	const op errs.Op = "wfs.Layers"

	reqURL, err := requestURL(endpoint, map[string]string{
		"service": "WFS",
		"version": Version,
		"request": "GetCapabilities",
	})
	if err != nil {
		return nil, errs.E(op, errs.InvalidRequest, err)
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, errs.E(op, errs.IO, err)
	}

	caps := capabilities{}
	if err := xml.Unmarshal(body, &caps); err != nil {
		return nil, errs.E(op, errs.IO, fmt.Errorf("decoding capabilities: %w", err))
	}

	layers := make([]string, len(caps.FeatureTypes))
	for i, ft := range caps.FeatureTypes {
		layers[i] = ft.Name
	}

	c.log.Debug().Msgf("%d layers found on %s", len(layers), endpoint)

	return layers, nil
}

// GetFeature fetches one layer as a GeoJSON feature collection.
func (c *Client) GetFeature(ctx context.Context, endpoint, layer string) (*geojson.FeatureCollection, error) {
	const op errs.Op = "wfs.GetFeature"

	reqURL, err := requestURL(endpoint, map[string]string{
		"service":      "WFS",
		"version":      Version,
		"request":      "GetFeature",
		"typename":     layer,
		"outputFormat": geojsonOutputFormat,
	})
	if err != nil {
		return nil, errs.E(op, errs.InvalidRequest, err)
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, errs.E(op, errs.IO, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, errs.E(op, errs.IO, fmt.Errorf("decoding geojson: %w", err))
	}

	return fc, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

func requestURL(endpoint string, params map[string]string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint url: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func New(client *http.Client, log zerolog.Logger) *Client {
	return &Client{
		client: client,
		log:    log,
	}
}
