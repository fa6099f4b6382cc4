// Package strata is a batch tabular ETL pipeline. It collects product-style
// tabular data from CSV files, SQLite databases, and JSON HTTP APIs, cleans
// it (deduplication, median/sentinel imputation, IQR outlier removal),
// enriches it (price categories, title-cased text, a processing timestamp),
// and loads the result into every configured target.
//
// # Architecture
//
// A run moves through fixed stages:
//
//   - Collect: every configured source is extracted; individual source
//     failures are logged and skipped, and the surviving record sets are
//     concatenated over the union of their columns.
//   - Clean: exact duplicates are dropped, missing numeric cells take the
//     column median, missing text cells take a sentinel, and each numeric
//     column is filtered by 1.5x IQR bounds in sequence.
//   - Enrich: a price_category column bins prices, every text column is
//     title-cased, and one processed_at timestamp marks the whole run.
//   - Load: each sink receives the full result; any sink failure fails the
//     run.
//
// Every run, successful or not, appends one outcome record to a JSON metrics
// log.
//
// # Packages
//
//   - pkg/table: the in-memory record set and column statistics
//   - pkg/transform: cleaning and enrichment stages
//   - pkg/connector: source and sink adapters behind a factory registry
//   - pkg/config: YAML configuration with environment substitution
//   - pkg/runlog: the per-run outcome log
//   - internal/pipeline: the run orchestration engine
//   - internal/schedule: interval scheduling with serialized runs
//
// # Basic Usage
//
//	cfg, err := config.Load("pipeline.yaml")
//	if err != nil {
//	    return err
//	}
//	runner, err := pipeline.FromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	outcome, err := runner.Run(ctx)
package strata
