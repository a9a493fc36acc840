package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/opendatazurich/opendata-go/pkg/catalogue"
	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/config"
	"github.com/opendatazurich/opendata-go/pkg/render"
)

var (
	configFilePath = flag.String("config", "config.yaml", "path to config file")
	outDir         = flag.String("out", ".", "directory the starter files are written to")
)

func main() {
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if flag.NArg() < 1 {
		log.Error().Msg("please provide a dataset id to generate starter files for")
		os.Exit(1)
	}

	fileParts, err := config.ProcessConfigPath(*configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("processing config path")
	}

	cfg, err := config.NewFileSystemLoader().Load(fileParts.FileName, fileParts.Path, "OPENDATA", config.NewDefaultEnvBinder())
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	err = cfg.Validate()
	if err != nil {
		log.Fatal().Err(err).Msg("validating config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing log level")
	}
	log = log.Level(level)

	templates, err := render.LoadTemplates(cfg.Templates.Dir, cfg.Templates.Tabular, cfg.Templates.Geo)
	if err != nil {
		log.Fatal().Err(err).Msg("loading templates")
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout(),
	}

	cat := catalogue.New(
		ckan.New(cfg.CKAN.APIURL, httpClient, log),
		httpClient,
		catalogue.Options{
			PageSize:         cfg.Catalogue.PageSize,
			PageDelay:        cfg.Catalogue.PageDelay(),
			GeoportalBaseURL: cfg.WFS.GeoportalBaseURL,
		},
		log,
	)

	dataset, err := cat.GetPackage(context.Background(), flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("fetching dataset")
	}

	renderer := render.New(cfg.Provider.Name, cfg.Provider.PortalBaseURL, templates, time.Now, log)

	starters := renderer.Render(dataset.Metadata())
	if len(starters) == 0 {
		log.Warn().Msgf("no csv or geojson resources matched in dataset %s, nothing to generate", flag.Arg(0))
		return
	}

	err = render.WriteFiles(starters, *outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("writing starter files")
	}

	for _, s := range starters {
		log.Info().Msgf("wrote %s", s.Filename)
	}
}
