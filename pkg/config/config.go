// Package config loads and validates the configuration for the
// catalogue tools. Sensible defaults target the Zurich open data
// catalogue, a yaml file or environment variables override them.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultExtension = "yaml"
	defaultTagName   = "yaml"
)

type Binder interface {
	Bind(v *viper.Viper) error
}

type Config struct {
	Provider  Provider  `yaml:"provider"`
	CKAN      CKAN      `yaml:"ckan"`
	WFS       WFS       `yaml:"wfs"`
	Catalogue Catalogue `yaml:"catalogue"`
	HTTP      HTTP      `yaml:"http"`
	Templates Templates `yaml:"templates"`

	LogLevel string `yaml:"log_level"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required),
		validation.Field(&c.CKAN, validation.Required),
		validation.Field(&c.WFS, validation.Required),
		validation.Field(&c.Catalogue, validation.Required),
		validation.Field(&c.HTTP, validation.Required),
		validation.Field(&c.Templates, validation.Required),
		validation.Field(&c.LogLevel, validation.Required),
	)
}

// Provider identifies the data portal the generated starter files link
// back to.
type Provider struct {
	Name          string `yaml:"name"`
	PortalBaseURL string `yaml:"portal_base_url"`
}

func (p Provider) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.PortalBaseURL, validation.Required, is.URL),
	)
}

type CKAN struct {
	APIURL string `yaml:"api_url"`
}

func (c CKAN) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
	)
}

type WFS struct {
	GeoportalBaseURL string `yaml:"geoportal_base_url"`
}

func (w WFS) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.GeoportalBaseURL, validation.Required, is.URL),
	)
}

type Catalogue struct {
	PageSize         int `yaml:"page_size"`
	PageDelaySeconds int `yaml:"page_delay_seconds"`
}

func (c Catalogue) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.PageDelaySeconds, validation.Min(0)),
	)
}

func (c Catalogue) PageDelay() time.Duration {
	return time.Duration(c.PageDelaySeconds) * time.Second
}

type HTTP struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

func (h HTTP) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.TimeoutSeconds, validation.Required, validation.Min(1)),
	)
}

func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

type Templates struct {
	Dir     string `yaml:"dir"`
	Tabular string `yaml:"tabular"`
	Geo     string `yaml:"geo"`
}

func (t Templates) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Dir, validation.Required),
		validation.Field(&t.Tabular, validation.Required),
		validation.Field(&t.Geo, validation.Required),
	)
}

// Default returns the configuration for the Zurich open data catalogue.
func Default() Config {
	return Config{
		Provider: Provider{
			Name:          "OpenDataZurich",
			PortalBaseURL: "https://data.stadt-zuerich.ch/dataset/",
		},
		CKAN: CKAN{
			APIURL: "https://data.stadt-zuerich.ch/api/3/action",
		},
		WFS: WFS{
			GeoportalBaseURL: "https://www.ogd.stadt-zuerich.ch/wfs/geoportal",
		},
		Catalogue: Catalogue{
			PageSize:         500,
			PageDelaySeconds: 2,
		},
		HTTP: HTTP{
			TimeoutSeconds: 30,
		},
		Templates: Templates{
			Dir:     "templates",
			Tabular: "template_rmarkdown.Rmd",
			Geo:     "template_rmarkdown_geo.Rmd",
		},
		LogLevel: "info",
	}
}

type FileParts struct {
	FileName string
	Path     string
}

func ProcessConfigPath(configFile string) (FileParts, error) {
	absolutePath, err := filepath.Abs(configFile)
	if err != nil {
		return FileParts{}, fmt.Errorf("convert to absolute path: %w", err)
	}

	fileName := filepath.Base(absolutePath)
	path := filepath.Dir(absolutePath)
	extension := filepath.Ext(fileName)

	if strings.ReplaceAll(strings.ToLower(extension), ".", "") != defaultExtension {
		return FileParts{}, fmt.Errorf("config file must have extension %s, got: %s", defaultExtension, extension)
	}

	return FileParts{
		FileName: fileName[:len(fileName)-len(extension)],
		Path:     path,
	}, nil
}

func NewFileSystemLoader() *FileSystemLoader {
	return &FileSystemLoader{}
}

type FileSystemLoader struct{}

// Load reads the configuration on top of the defaults. A missing config
// file is not an error, the defaults and environment variables still
// apply.
func (fs *FileSystemLoader) Load(name, path, envPrefix string, b Binder) (Config, error) {
	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName(name)
	v.SetConfigType(defaultExtension)

	setDefaults(v, Default())

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // So that env vars are translated properly
	v.AutomaticEnv()

	if b != nil {
		err := b.Bind(v)
		if err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(envPrefix)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config

	err = v.Unmarshal(&config, func(cfg *mapstructure.DecoderConfig) {
		cfg.TagName = defaultTagName // We use yaml tags in the config structs so we can marshal to yaml
	})
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.portal_base_url", d.Provider.PortalBaseURL)
	v.SetDefault("ckan.api_url", d.CKAN.APIURL)
	v.SetDefault("wfs.geoportal_base_url", d.WFS.GeoportalBaseURL)
	v.SetDefault("catalogue.page_size", d.Catalogue.PageSize)
	v.SetDefault("catalogue.page_delay_seconds", d.Catalogue.PageDelaySeconds)
	v.SetDefault("http.timeout_seconds", d.HTTP.TimeoutSeconds)
	v.SetDefault("templates.dir", d.Templates.Dir)
	v.SetDefault("templates.tabular", d.Templates.Tabular)
	v.SetDefault("templates.geo", d.Templates.Geo)
	v.SetDefault("log_level", d.LogLevel)
}

type EnvBinder struct {
	binders map[string]string
}

func (e *EnvBinder) Bind(v *viper.Viper) error {
	for envVar, key := range e.binders {
		err := v.BindEnv(key, envVar)
		if err != nil {
			return fmt.Errorf("bind env var %s to key %s: %w", envVar, key, err)
		}
	}

	return nil
}

func NewEnvBinder(binders map[string]string) *EnvBinder {
	return &EnvBinder{
		binders: binders,
	}
}

func NewDefaultEnvBinder() *EnvBinder {
	return NewEnvBinder(map[string]string{
		"CKAN_API_LINK":       "ckan.api_url",
		"GEOPORTAL_BASE_LINK": "wfs.geoportal_base_url",
		"PROVIDER_LINK":       "provider.portal_base_url",
	})
}
