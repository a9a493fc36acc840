package catalogue

import (
	"strings"

	"github.com/opendatazurich/opendata-go/pkg/ckan"
)

// The catalogue publishes formats in mixed case ("CSV" and "csv",
// "parquet"), so tabular formats are compared case-insensitively.
// Geo formats are matched exactly: the catalogue-wide geo view only
// counts WFS services, while per-dataset views also accept the JSON
// variants the geoportal publishes alongside them.
var (
	tabularFormats = map[string]bool{
		"csv":     true,
		"parquet": true,
	}

	datasetGeoFormats = map[string]bool{
		"WFS":  true,
		"JSON": true,
	}
)

// IsTabularFormat reports whether a resource format counts as tabular.
func IsTabularFormat(format string) bool {
	return tabularFormats[strings.ToLower(format)]
}

// TabularDistributions keeps only the tabular resources of a dataset.
// It returns nil when nothing matches so callers can drop the dataset
// instead of keeping an empty row.
func TabularDistributions(resources []ckan.Resource) []ckan.Resource {
	var matched []ckan.Resource
	for _, r := range resources {
		if IsTabularFormat(r.Format) {
			matched = append(matched, r)
		}
	}

	return matched
}

// GeoDistributions keeps only the WFS resources of a dataset, the
// strict rule used for the catalogue-wide geo view. Returns nil when
// nothing matches.
func GeoDistributions(resources []ckan.Resource) []ckan.Resource {
	var matched []ckan.Resource
	for _, r := range resources {
		if r.Format == "WFS" {
			matched = append(matched, r)
		}
	}

	return matched
}

// DatasetGeoDistributions keeps the resources in the broader geo format
// set used for per-dataset views. Returns nil when nothing matches.
func DatasetGeoDistributions(resources []ckan.Resource) []ckan.Resource {
	var matched []ckan.Resource
	for _, r := range resources {
		if datasetGeoFormats[r.Format] {
			matched = append(matched, r)
		}
	}

	return matched
}
