package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/niagalab/niaga/internal/basket"
	"github.com/niagalab/niaga/internal/config"
	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/dataset"
	"github.com/niagalab/niaga/internal/forecast"
	"github.com/niagalab/niaga/internal/pipeline"
	"github.com/niagalab/niaga/internal/recommend"
	"github.com/niagalab/niaga/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "niaga",
	Short:   "Retail demand forecasts and basket analysis",
	Long:    "Niaga ingests point-of-sale exports and produces per-region demand forecasts, association rules, and stocking recommendations.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(mbaCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("niaga", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/niaga/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to tune forecast and basket analysis thresholds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Dataset:")
		fmt.Printf("  Transactions: %d\n", stats.Transactions)
		fmt.Printf("  Regions: %d\n", stats.Regions)
		fmt.Printf("  Categories: %d\n", stats.Categories)
		fmt.Println("\nResults:")
		fmt.Printf("  Forecast rows: %d (%d future)\n", stats.Forecasts, stats.FutureForecasts)
		fmt.Printf("  Model metrics: %d\n", stats.Metrics)
		fmt.Printf("  Association rules: %d\n", stats.Rules)
		fmt.Printf("  Recommendations: %d\n", stats.Recommendations)
		fmt.Printf("  Reports: %d\n", stats.Reports)
		return nil
	},
}

// --- ingest command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Load a POS transaction export (.csv or .xlsx) into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, err := dataset.Read(args[0])
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			return fmt.Errorf("no usable rows in %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ReplaceTransactions(txs); err != nil {
			return fmt.Errorf("storing transactions: %w", err)
		}

		regions, err := db.GetRegions()
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %d transactions across %d region(s).\n", len(txs), len(regions))
		fmt.Println("Previous analysis results were cleared. Run 'niaga run' to recompute.")
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: forecast -> basket -> recommend -> store -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result := pipeline.New(cfg, db).Run()

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}
		fmt.Println("\nPipeline complete! Run 'niaga serve' to view the results.")
		return nil
	},
}

// --- forecast command ---

var forecastRegion string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run demand forecasting and print the outlook (results are not stored)",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, db, err := loadTransactions()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := forecast.New(pipeline.ForecastConfig(cfg))

		var forecasts []database.Forecast
		var metrics []database.ModelMetric
		if forecastRegion != "" {
			forecasts, metrics, err = engine.Region(txs, forecastRegion)
		} else {
			forecasts, metrics, err = engine.All(txs)
		}
		if err != nil {
			return err
		}

		printed := 0
		fmt.Println("Demand outlook (future weeks):")
		for _, f := range forecasts {
			if !f.IsForecast {
				continue
			}
			fmt.Printf("  %s  %-30s %s  %8.2f\n", f.Region, f.Category, f.Week.Format("2006-01-02"), f.Predicted)
			printed++
		}
		if printed == 0 {
			fmt.Println("  (no forecasts produced; is any data ingested?)")
		}

		if len(metrics) > 0 {
			fmt.Println("\nIn-sample accuracy:")
			for _, m := range metrics {
				fmt.Printf("  %s  %-30s MAE %.2f  MAPE %.2f%%  n=%d\n", m.Region, m.Category, m.MAE, m.MAPE, m.SampleSize)
			}
		}
		return nil
	},
}

// --- mba command ---

var mbaRegion string

var mbaCmd = &cobra.Command{
	Use:   "mba",
	Short: "Run market basket analysis and print the rules (results are not stored)",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, db, err := loadTransactions()
		if err != nil {
			return err
		}
		defer db.Close()

		miner := basket.NewMiner(pipeline.BasketConfig(cfg))

		var rules []database.Rule
		if mbaRegion != "" {
			rules = miner.Region(txs, mbaRegion)
		} else {
			rules = miner.All(txs)
		}

		if len(rules) == 0 {
			fmt.Println("No association rules found at the configured thresholds.")
			return nil
		}

		fmt.Printf("Association rules (%d):\n", len(rules))
		for _, r := range rules {
			fmt.Printf("  %s  %s => %s  support %.4f  confidence %.4f  lift %.4f\n",
				r.Region, r.Antecedents, r.Consequents, r.Support, r.Confidence, r.Lift)
		}
		return nil
	},
}

// --- recommend command ---

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Synthesize recommendations and print them (results are not stored)",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, db, err := loadTransactions()
		if err != nil {
			return err
		}
		defer db.Close()

		forecasts, _, err := forecast.New(pipeline.ForecastConfig(cfg)).All(txs)
		if err != nil {
			return err
		}
		rules := basket.NewMiner(pipeline.BasketConfig(cfg)).All(txs)
		recs := recommend.Generate(forecasts, rules, pipeline.RecommendConfig(cfg))

		if len(recs) == 0 {
			fmt.Println("No recommendations at the configured thresholds.")
			return nil
		}

		fmt.Printf("Recommendations (%d):\n", len(recs))
		for _, r := range recs {
			fmt.Printf("  [%s/%s] %s\n", r.Region, r.Priority, r.Action)
		}
		return nil
	},
}

// --- report command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the latest planning report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := db.GetLatestReport()
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("no report found; run 'niaga run' first")
		}
		fmt.Println(rep.BodyMarkdown)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	forecastCmd.Flags().StringVarP(&forecastRegion, "region", "r", "", "Limit to one region")
	mbaCmd.Flags().StringVarP(&mbaRegion, "region", "r", "", "Limit to one region")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "niaga.db")
	return database.Open(dbPath)
}

func loadTransactions() ([]database.Transaction, *database.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	txs, err := db.GetTransactions()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if len(txs) == 0 {
		db.Close()
		return nil, nil, fmt.Errorf("no transactions loaded; run 'niaga ingest' first")
	}
	return txs, db, nil
}
