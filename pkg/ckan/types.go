package ckan

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Package is one published dataset in the catalogue, together with its
// resources. Field names follow the CKAN action API payload, including
// the provider specific sszBemerkungen field.
type Package struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Title            string       `json:"title"`
	Author           string       `json:"author"`
	AuthorEmail      string       `json:"author_email"`
	Maintainer       string       `json:"maintainer"`
	MaintainerEmail  string       `json:"maintainer_email"`
	Notes            string       `json:"notes"`
	SSZComments      string       `json:"sszBemerkungen"`
	LicenseID        string       `json:"license_id"`
	DateLastUpdated  string       `json:"dateLastUpdated"`
	MetadataCreated  string       `json:"metadata_created"`
	MetadataModified string       `json:"metadata_modified"`
	Tags             []Tag        `json:"tags"`
	Groups           []Group      `json:"groups"`
	Organization     Organization `json:"organization"`
	Resources        []Resource   `json:"resources"`
}

// Validate ensures a package record carries the keys the rest of the
// pipeline relies on, so that a malformed record fails at ingestion
// instead of deep inside a later stage.
func (p Package) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
	)
}

// TagNames returns the plain tag names of the package.
func (p Package) TagNames() []string {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}

	return names
}

// HasTag reports whether the package carries the given tag name.
func (p Package) HasTag(name string) bool {
	for _, t := range p.Tags {
		if t.Name == name {
			return true
		}
	}

	return false
}

// ResourceURLs returns the download or service URL of every resource,
// in catalogue order.
func (p Package) ResourceURLs() []string {
	urls := make([]string, len(p.Resources))
	for i, r := range p.Resources {
		urls[i] = r.URL
	}

	return urls
}

// Resource is one downloadable or queryable distribution belonging to a
// package.
type Resource struct {
	ID           string `json:"id"`
	PackageID    string `json:"package_id"`
	Name         string `json:"name"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	URL          string `json:"url"`
	ResourceType string `json:"resource_type"`
	Description  string `json:"description"`
	LastModified string `json:"last_modified"`
}

type Tag struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type Group struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type Organization struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}
