// Package ckan implements a client for the CKAN action API of the
// city's open data catalogue.
// - https://docs.ckan.org/en/latest/api/
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opendatazurich/opendata-go/pkg/errs"
)

// Fetcher is the part of the CKAN API the catalogue client consumes.
type Fetcher interface {
	ListPage(ctx context.Context, limit, offset int) ([]Package, error)
	ShowPackage(ctx context.Context, identifier string) (*Package, error)
}

type Client struct {
	client *http.Client
	apiURL string
	log    zerolog.Logger
}

type listResponse struct {
	Result []Package `json:"result"`
}

type showResponse struct {
	Success bool         `json:"success"`
	Result  *Package     `json:"result"`
	Error   *ActionError `json:"error"`
}

// ActionError is the error object CKAN returns on failed actions.
type ActionError struct {
	Message string `json:"message"`
	Type    string `json:"__type"`
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return "no error message provided"
	}
	if e.Type == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ListPage fetches one page of the full package list, resources
// included. An empty page marks the end of pagination.
func (c *Client) ListPage(ctx context.Context, limit, offset int) ([]Package, error) {
	const op errs.Op = "ckan.ListPage"

	if limit <= 0 {
		return nil, errs.E(op, errs.InvalidRequest, errs.Parameter("limit"), errs.Str("must be greater than zero"))
	}
	if offset < 0 {
		return nil, errs.E(op, errs.InvalidRequest, errs.Parameter("offset"), errs.Str("must not be negative"))
	}

	reqURL := fmt.Sprintf("%s/current_package_list_with_resources?limit=%d&offset=%d", c.apiURL, limit, offset)

	res := listResponse{}
	if err := c.sendRequestAndDeserialize(ctx, http.MethodGet, reqURL, &res); err != nil {
		return nil, errs.E(op, errs.IO, err)
	}

	c.log.Info().Int("limit", limit).Int("offset", offset).Msgf("%d packages retrieved", len(res.Result))

	return res.Result, nil
}

// ShowPackage fetches a single package by id or name, the API accepts
// either interchangeably.
func (c *Client) ShowPackage(ctx context.Context, identifier string) (*Package, error) {
	const op errs.Op = "ckan.ShowPackage"

	if identifier == "" {
		return nil, errs.E(op, errs.InvalidRequest, errs.Parameter("id"), errs.Str("provide a package id or name"))
	}

	if _, err := uuid.Parse(identifier); err == nil {
		c.log.Debug().Msgf("looking up package by id %s", identifier)
	} else {
		c.log.Debug().Msgf("looking up package by name %s", identifier)
	}

	reqURL := fmt.Sprintf("%s/package_show?id=%s", c.apiURL, url.QueryEscape(identifier))

	res := showResponse{}
	if err := c.sendRequestAndDeserialize(ctx, http.MethodGet, reqURL, &res); err != nil {
		return nil, errs.E(op, errs.IO, err)
	}

	if !res.Success || res.Result == nil {
		if res.Error != nil {
			return nil, errs.E(op, errs.NotExist, res.Error)
		}

		return nil, errs.E(op, errs.NotExist, errs.Str("no error message provided"))
	}

	if err := res.Result.Validate(); err != nil {
		return nil, errs.E(op, errs.Validation, err)
	}

	return res.Result, nil
}

func (c *Client) sendRequestAndDeserialize(ctx context.Context, method, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	err = json.NewDecoder(res.Body).Decode(into)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func New(apiURL string, client *http.Client, log zerolog.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		client: client,
		log:    log,
	}
}
