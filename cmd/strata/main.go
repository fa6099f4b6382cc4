package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strata-etl/strata/internal/pipeline"
	"github.com/strata-etl/strata/internal/schedule"
	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/registry"
	"github.com/strata-etl/strata/pkg/logger"

	// Import all available connectors to register them
	_ "github.com/strata-etl/strata/pkg/connector/sinks/csv"
	_ "github.com/strata-etl/strata/pkg/connector/sinks/jsonfile"
	_ "github.com/strata-etl/strata/pkg/connector/sinks/sqlite"
	_ "github.com/strata-etl/strata/pkg/connector/sources/csv"
	_ "github.com/strata-etl/strata/pkg/connector/sources/httpapi"
	_ "github.com/strata-etl/strata/pkg/connector/sources/sqlite"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata - Batch tabular ETL pipeline",
		Long: `Strata collects tabular data from multiple sources, cleans and enriches
it, and loads the result into every configured target. Runs execute once or on
a recurring schedule, and every run appends an outcome record to the metrics
log.`,
	}

	root.AddCommand(versionCommand())
	root.AddCommand(listCommand())
	root.AddCommand(runCommand())
	root.AddCommand(seedCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Strata v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
			fmt.Println("\nAvailable Sink Connectors:")
			for _, sink := range registry.ListSinks() {
				fmt.Printf("  - %s\n", sink)
			}
		},
	}
}

func runCommand() *cobra.Command {
	var configFile string
	var scheduled bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline",
		Long: `Run the pipeline once, or keep it running on the configured schedule
with --schedule. A missing configuration file falls back to the documented
defaults.

Example:
  strata run --config pipeline.yaml
  strata run --config pipeline.yaml --schedule`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(configFile, scheduled)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "pipeline.yaml", "Path to pipeline configuration YAML file")
	cmd.Flags().BoolVar(&scheduled, "schedule", false, "Keep running on the configured schedule")
	return cmd
}

func runPipeline(configFile string, scheduled bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Encoding: "console"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	runner, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Run(ctx); err != nil {
		if !scheduled {
			return err
		}
		log.Error("initial run failed, schedule continues", zap.Error(err))
	}

	if !scheduled {
		return nil
	}

	if !cfg.Schedule.Enabled {
		log.Warn("--schedule requested but schedule is disabled in configuration")
		return nil
	}

	driver, err := schedule.NewDriver(cfg.Schedule.Interval(), func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return driver.Start(ctx)
}

func seedCommand() *cobra.Command {
	var dir string
	var rows int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample input data",
		Long: `Create sample product data for demonstration: a CSV file under
<dir>/raw/input.csv and a SQLite database at <dir>/source.db with a products
table holding the same rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedSampleData(dir, rows)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data", "Directory to create sample data under")
	cmd.Flags().IntVar(&rows, "rows", 200, "Number of sample rows to generate")
	return cmd
}

type sampleProduct struct {
	id          int
	name        string
	price       float64
	category    string
	stock       int
	createdDate time.Time
}

func generateSampleProducts(n int) []sampleProduct {
	categories := []string{"Electronics", "Clothing", "Books", "Home"}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	products := make([]sampleProduct, n)
	for i := range products {
		products[i] = sampleProduct{
			id:          i + 1,
			name:        fmt.Sprintf("Product_%d", i+1),
			price:       5 + rng.Float64()*495,
			category:    categories[rng.Intn(len(categories))],
			stock:       rng.Intn(100),
			createdDate: start.AddDate(0, 0, i),
		}
	}
	return products
}

func seedSampleData(dir string, rows int) error {
	products := generateSampleProducts(rows)

	if err := writeSampleCSV(filepath.Join(dir, "raw", "input.csv"), products); err != nil {
		return err
	}
	if err := writeSampleDatabase(filepath.Join(dir, "source.db"), products); err != nil {
		return err
	}

	fmt.Printf("Sample data created: %d rows under %s\n", rows, dir)
	return nil
}

func writeSampleCSV(path string, products []sampleProduct) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "product_name", "price", "category", "stock_quantity", "created_date"}); err != nil {
		return err
	}
	for _, p := range products {
		record := []string{
			strconv.Itoa(p.id),
			p.name,
			strconv.FormatFloat(p.price, 'f', 2, 64),
			p.category,
			strconv.Itoa(p.stock),
			p.createdDate.Format("2006-01-02"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeSampleDatabase(path string, products []sampleProduct) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`DROP TABLE IF EXISTS products`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE products (
		id INTEGER,
		product_name TEXT,
		price REAL,
		category TEXT,
		stock_quantity INTEGER,
		created_date TEXT
	)`); err != nil {
		return err
	}

	stmt, err := db.Prepare(`INSERT INTO products VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(p.id, p.name, p.price, p.category, p.stock, p.createdDate.Format("2006-01-02")); err != nil {
			return err
		}
	}
	return nil
}
