// Package render turns dataset metadata into R Markdown starter files,
// one file per matched resource, by substituting a fixed set of
// placeholders into static templates.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/opendatazurich/opendata-go/pkg/catalogue"
	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/errs"
)

// Kind tells which template a matched resource is rendered with.
type Kind string

const (
	TableData Kind = "table_data"
	GeoData   Kind = "geo_data"
)

// Placeholders recognized in the templates.
const (
	PlaceholderDocumentTitle     = "{{ DOCUMENT_TITLE }}"
	PlaceholderDatasetTitle      = "{{ DATASET_TITLE }}"
	PlaceholderTodayDate         = "{{ TODAY_DATE }}"
	PlaceholderDatasetIdentifier = "{{ DATASET_IDENTIFIER }}"
	PlaceholderDescription       = "{{ DATASET_DESCRIPTION }}"
	PlaceholderSSZComments       = "{{ SSZ_COMMENTS }}"
	PlaceholderMetadata          = "{{ DATASET_METADATA }}"
	PlaceholderContact           = "{{ CONTACT }}"
	PlaceholderDatashopLink      = "{{ DATASHOP_LINK_PROVIDER }}"
	PlaceholderFileURL           = "{{ FILE_URL }}"
)

// Templates holds the raw template text per kind.
type Templates struct {
	Tabular string
	Geo     string
}

// LoadTemplates reads both template files from dir.
func LoadTemplates(dir, tabularFile, geoFile string) (Templates, error) {
	const op errs.Op = "render.LoadTemplates"

	tabular, err := os.ReadFile(filepath.Join(dir, tabularFile))
	if err != nil {
		return Templates{}, errs.E(op, errs.IO, err)
	}

	geo, err := os.ReadFile(filepath.Join(dir, geoFile))
	if err != nil {
		return Templates{}, errs.E(op, errs.IO, err)
	}

	return Templates{
		Tabular: string(tabular),
		Geo:     string(geo),
	}, nil
}

type Renderer struct {
	provider      string
	portalBaseURL string
	templates     Templates
	now           func() time.Time
	log           zerolog.Logger
}

func New(provider, portalBaseURL string, templates Templates, now func() time.Time, log zerolog.Logger) *Renderer {
	return &Renderer{
		provider:      provider,
		portalBaseURL: portalBaseURL,
		templates:     templates,
		now:           now,
		log:           log,
	}
}

// Starter is one rendered output file.
type Starter struct {
	Filename string
	Kind     Kind
	Content  string
}

// Classify decides whether a resource gets a starter file and with
// which template. The rules differ from the catalogue-level format
// classifier on purpose: tabular csv/parquet files tagged as geodata
// are skipped (their geojson sibling covers them), and geo starters
// are only generated for city resources ("stzh" tag) with a geojson
// download URL.
func Classify(p ckan.Package, r ckan.Resource) (Kind, bool) {
	switch {
	case catalogue.IsTabularFormat(r.Format) && !p.HasTag("geodaten"):
		return TableData, true
	case strings.Contains(r.URL, "geojson") && p.HasTag("stzh"):
		return GeoData, true
	default:
		return "", false
	}
}

// Render produces one starter per matched resource of the dataset,
// sorted by resource name.
func (r *Renderer) Render(p ckan.Package) []Starter {
	type row struct {
		resource ckan.Resource
		kind     Kind
	}

	var rows []row
	for _, res := range p.Resources {
		kind, ok := Classify(p, res)
		if !ok {
			continue
		}
		rows = append(rows, row{resource: res, kind: kind})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].resource.Name < rows[j].resource.Name
	})

	starters := make([]Starter, 0, len(rows))
	for _, row := range rows {
		starters = append(starters, Starter{
			Filename: fmt.Sprintf("%s_%s.Rmd", slug.Make(p.Name), row.resource.ID),
			Kind:     row.kind,
			Content:  r.render(p, row.resource, row.kind),
		})
	}

	r.log.Info().Msgf("rendered %d starter files for dataset %s", len(starters), p.Name)

	return starters
}

func (r *Renderer) render(p ckan.Package, res ckan.Resource, kind Kind) string {
	template := r.templates.Tabular
	if kind == GeoData {
		template = r.templates.Geo
	}

	datashopLink := fmt.Sprintf("[Direct link by **%s** for dataset](%s%s)", r.provider, r.portalBaseURL, p.Name)

	return strings.NewReplacer(
		PlaceholderDocumentTitle, fmt.Sprintf("Open Government Data, %s", r.provider),
		PlaceholderDatasetTitle, sanitize(p.Title),
		PlaceholderTodayDate, r.now().Format("2006-01-02"),
		PlaceholderDatasetIdentifier, p.Name,
		PlaceholderDescription, sanitize(p.Notes),
		PlaceholderSSZComments, sanitize(p.SSZComments),
		PlaceholderMetadata, MetadataBlock(p),
		PlaceholderContact, p.MaintainerEmail,
		PlaceholderDatashopLink, datashopLink,
		PlaceholderFileURL, res.URL,
	).Replace(template)
}

// MetadataBlock renders the fixed dataset metadata keys as a markdown
// bullet list.
func MetadataBlock(p ckan.Package) string {
	keywords := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		keywords[i] = g.DisplayName
	}

	entries := []struct {
		key   string
		value string
	}{
		{"Publisher", p.Author},
		{"Maintainer", p.Maintainer},
		{"Maintainer_email", p.MaintainerEmail},
		{"Keywords", strings.Join(keywords, ",")},
		{"Tags", strings.Join(p.TagNames(), ",")},
		{"Metadata_created", p.MetadataCreated},
		{"Metadata_modified", p.MetadataModified},
	}

	b := &strings.Builder{}
	for _, e := range entries {
		fmt.Fprintf(b, "- **%s** `%s`\n", e.key, e.value)
	}

	return b.String()
}

// Templates are embedded in quoted markdown, so quotes become
// apostrophes and backslashes become pipes.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, `\`, "|")

	return s
}

// WriteFiles writes every starter into dir.
func WriteFiles(starters []Starter, dir string) error {
	const op errs.Op = "render.WriteFiles"

	for _, s := range starters {
		err := os.WriteFile(filepath.Join(dir, s.Filename), []byte(s.Content), 0o644)
		if err != nil {
			return errs.E(op, errs.IO, err)
		}
	}

	return nil
}
