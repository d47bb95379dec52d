package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/config"
	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/schema"
	"go-sales-insights/internal/store"
	"go-sales-insights/pkg/utils"
)

// mappingFlag collects repeated -map Field=Column values.
type mappingFlag []model.MappingOverride

func (m *mappingFlag) String() string {
	parts := make([]string, len(*m))
	for i, o := range *m {
		parts[i] = o.Field + "=" + o.Column
	}
	return strings.Join(parts, ",")
}

func (m *mappingFlag) Set(v string) error {
	field, column, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(field) == "" || strings.TrimSpace(column) == "" {
		return fmt.Errorf("expected Field=Column, got %q", v)
	}
	*m = append(*m, model.MappingOverride{Field: strings.TrimSpace(field), Column: strings.TrimSpace(column)})
	return nil
}

func main() {
	defaults := model.DefaultAnalysisParams()
	var mappings mappingFlag

	file := flag.String("file", "", "sales dataset (.csv, .json or .xlsx)")
	horizon := flag.Int("horizon", defaults.ForecastHorizonMonths, "forecast horizon in months (1-12)")
	sensitivity := flag.Int("sensitivity", defaults.Sensitivity, "anomaly sensitivity percent (10-100)")
	metric := flag.String("metric", string(defaults.ForecastMetric), "forecast metric: Sales or Profit")
	rankBy := flag.String("rank-by", string(defaults.RankBy), "profitability dimension: Category or Product")
	topN := flag.Int("top", defaults.TopN, "groups per profitability list")
	currency := flag.String("currency", defaults.Currency, "ISO 4217 currency label")
	out := flag.String("out", "", "directory for table exports (skipped when empty)")
	format := flag.String("format", pipeline.FormatCSV, "export format: csv, json or xlsx")
	dbPath := flag.String("db", "", "SQLite file for run history (skipped when empty)")
	flag.Var(&mappings, "map", "manual column mapping Field=Column (repeatable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.SetupLogging()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *dbPath != "" {
		if err := store.InitDB(*dbPath); err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer store.Close()
	}

	table, err := pipeline.ReadFile(ctx, *file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to read dataset")
	}

	resolver := schema.NewResolver(cfg.Resolver)
	cm := resolver.Resolve(table.Columns, model.RequiredFields, model.OptionalFields)
	for _, o := range mappings {
		f, ok := model.ParseField(o.Field)
		if !ok {
			log.Fatal().Str("field", o.Field).Msg("unknown field in -map")
		}
		if err := resolver.Override(&cm, table.Columns, f, o.Column); err != nil {
			log.Fatal().Err(err).Msg("invalid -map")
		}
	}

	params := defaults
	params.ForecastHorizonMonths = *horizon
	params.Sensitivity = *sensitivity
	params.ForecastMetric = model.Field(*metric)
	params.RankBy = model.Field(*rankBy)
	params.TopN = *topN
	params.Currency = *currency

	runner := pipeline.NewRunner(nil, cfg.ForecastTimeout)
	analysis, _, report, err := runner.Run(ctx, "cli", table, cm, params)
	if err != nil {
		log.Error().Err(err).Int("dropped_rows", report.DroppedRows).Msg("❌ analysis failed")
		for _, r := range cm.Resolutions() {
			fmt.Fprintf(os.Stderr, "  %-10s %-12s %s\n", r.Field, r.Provenance, r.Column)
		}
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(analysis); err != nil {
		log.Fatal().Err(err).Msg("failed to print analysis")
	}

	if *out == "" {
		return
	}
	outputs := utils.NewOutputManager(*out)
	dir, err := outputs.SessionDir(analysis.RunID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create export directory")
	}
	failed := false
	for _, name := range pipeline.ExportTables {
		t, err := pipeline.BuildTable(analysis, name)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build table")
		}
		if res := pipeline.ExportToFile(ctx, t, *format, dir); !res.Success {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
