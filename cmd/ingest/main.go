package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"rentpulse/internal/ingest"
)

func main() {
	input := flag.String("csv", "", "path to the wide-format export (CSV or XLSX)")
	output := flag.String("out", "data/processed/rent_index_long.csv", "output path for the long-format CSV")
	valueName := flag.String("value-name", ingest.DefaultValueName, "name of the value column in the output")
	subsetStates := flag.String("subset-states", "", "comma-separated state codes to keep (e.g. GA,TX)")
	lastNMonths := flag.Int("last-n-months", 0, "keep only the trailing N months (0 keeps all)")
	maxRows := flag.Int("max-rows", 0, "cap the output row count for commit-safe subsets (0 keeps all)")
	flag.Parse()

	if *input == "" {
		slog.Error("Missing required -csv flag")
		flag.Usage()
		os.Exit(1)
	}

	opts := ingest.Options{
		ValueName:   *valueName,
		LastNMonths: *lastNMonths,
		MaxRows:     *maxRows,
	}
	if *subsetStates != "" {
		for _, s := range strings.Split(*subsetStates, ",") {
			if s = strings.TrimSpace(s); s != "" {
				opts.SubsetStates = append(opts.SubsetStates, s)
			}
		}
	}

	slog.Info("Melting wide export", "input", *input, "output", *output)

	rows, err := ingest.MeltWideToLong(*input, opts)
	if err != nil {
		slog.Error("Failed to melt wide export", "error", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		slog.Error("Melt produced no rows", "input", *input)
		os.Exit(1)
	}

	if err := ingest.WriteLongCSV(rows, opts.ValueName, *output); err != nil {
		slog.Error("Failed to write long dataset", "error", err)
		os.Exit(1)
	}

	slog.Info("Wrote long dataset", "path", *output, "rows", len(rows))
}
