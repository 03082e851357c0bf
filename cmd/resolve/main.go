package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/resolve"
	"github.com/synaptica-ai/consolidator/pkg/sources"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

// Note-level consolidation: many extraction passes may propose values for
// the same (note, field); exactly one survives.
func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	inPath := flag.String("in", "", "candidate stream CSV (default from config)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("resolve")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	path := cfg.CandidateFile
	if *inPath != "" {
		path = *inPath
	}

	table, err := tabular.ReadCSVEncodings(path, cfg.Encodings)
	if err != nil {
		log.WithError(err).Fatal("failed to read candidate stream")
	}

	norm := identifier.New(cfg.BlankTokens)
	candidates, stats, err := sources.Candidates(table, cfg.Columns.Entity, cfg.Columns, norm)
	if err != nil {
		log.WithError(err).Fatal("candidate stream missing required column")
	}
	if len(candidates) == 0 {
		log.Fatalf("no usable candidate rows in %s", path)
	}

	resolver := resolve.New(nil)
	resolved, rstats := resolver.Resolve(candidates)

	rows := make([]map[string]string, 0, len(resolved))
	for _, r := range resolved {
		row := map[string]string{
			"note_id":    r.EntityID,
			"field":      r.Field,
			"value":      r.Value,
			"status":     r.Status,
			"confidence": strconv.FormatFloat(r.Confidence, 'g', -1, 64),
			"rule":       r.Rule,
		}
		for name, value := range r.Provenance {
			if _, taken := row[name]; taken {
				continue
			}
			row[name] = value
		}
		rows = append(rows, row)
	}

	columns := tabular.OrderedColumns("note_id", []string{"field", "value", "status", "confidence", "rule"}, rows)
	outPath := cfg.OutputPath(cfg.ResolvedFile)
	if err := tabular.WriteCSV(outPath, columns, rows); err != nil {
		log.WithError(err).Fatal("failed to write resolved fields")
	}

	lines := []string{
		"=== Note-Level Candidate Resolution ===",
		"Input: " + path,
		"Read encoding: " + table.Encoding,
		"",
		fmt.Sprintf("Candidate rows read: %d", stats.Rows),
		fmt.Sprintf("Rows skipped (blank note/field key): %d", stats.SkippedBlankKey),
		fmt.Sprintf("Confidence values defaulted to 0: %d", stats.DefaultedConfidence),
		fmt.Sprintf("(note, field) keys resolved: %d", rstats.Groups),
		fmt.Sprintf("Keys with a single candidate: %d", rstats.Singleton),
		"",
		"WROTE: " + outPath,
	}
	if err := tabular.WriteSummary(cfg.OutputPath("note_level_resolution_summary.txt"), lines); err != nil {
		log.WithError(err).Fatal("failed to write summary")
	}

	log.WithFields(map[string]interface{}{
		"candidates": rstats.Candidates,
		"resolved":   rstats.Groups,
		"defaulted":  stats.DefaultedConfidence,
	}).Info("note-level resolution complete")
}
