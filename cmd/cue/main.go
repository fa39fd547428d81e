package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abzali8806/Cue-MVP-api/internal/cli"
	"github.com/Abzali8806/Cue-MVP-api/internal/config"
	"github.com/Abzali8806/Cue-MVP-api/internal/http"
	"github.com/Abzali8806/Cue-MVP-api/internal/log"
	internal_storage "github.com/Abzali8806/Cue-MVP-api/internal/storage"
	"github.com/Abzali8806/Cue-MVP-api/pkg/catalog"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/pipeline"
	"github.com/Abzali8806/Cue-MVP-api/pkg/validator"
)

var rootCmd = &cobra.Command{Use: "cue"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workflow generation API server",
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.GetLogger()

		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}

		store, err := internal_storage.InitStore(cfg.ConnString())
		if err != nil {
			logger.Errorf("Failed to initialize store: %v", err)
			os.Exit(1)
		}
		defer store.Close()

		var extractor intent.Extractor
		if cfg.Extractor.URL != "" {
			logger.Infof("Using language understanding service at %s", cfg.Extractor.URL)
			extractor = intent.NewHTTPExtractor(cfg.Extractor.URL, cfg.Extractor.Timeout)
		} else {
			logger.Infof("No extractor URL configured, using built-in keyword engine")
			extractor = intent.NewKeywordExtractor()
		}

		svc := pipeline.NewService(
			store,
			extractor,
			catalog.Default(),
			validator.New(nil, cfg.Sandbox.Timeout),
			pipeline.Config{
				RetryBudget:         cfg.Pipeline.RetryBudget,
				ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
				StageTimeout:        cfg.Pipeline.StageTimeout,
				RegenBackoff:        cfg.Pipeline.RegenBackoff,
			},
			logger,
		)

		server := http.NewServer(svc, logger)
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.Start(":" + cfg.Server.Port); err != nil {
			logger.Errorf("Server stopped: %v", err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.PersistentFlags().String("db", "", "Database connection string")
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
