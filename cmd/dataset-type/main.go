package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/opendatazurich/opendata-go/pkg/catalogue"
	"github.com/opendatazurich/opendata-go/pkg/ckan"
	"github.com/opendatazurich/opendata-go/pkg/config"
)

var configFilePath = flag.String("config", "config.yaml", "path to config file")

func main() {
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if flag.NArg() < 1 {
		log.Error().Msg("please provide a dataset id to inspect")
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

	switch {
	case len(dataset.GeoResources()) > 0:
		fmt.Println("geo")
	case len(dataset.TabularResources()) > 0:
		fmt.Println("csv")
	default:
		fmt.Println("unknown")
		os.Exit(1)
	}
}
