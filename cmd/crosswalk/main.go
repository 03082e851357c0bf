package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/consolidator/pkg/common/config"
	"github.com/synaptica-ai/consolidator/pkg/common/logger"
	"github.com/synaptica-ai/consolidator/pkg/common/models"
	"github.com/synaptica-ai/consolidator/pkg/crosswalk"
	"github.com/synaptica-ai/consolidator/pkg/identifier"
	"github.com/synaptica-ai/consolidator/pkg/tabular"
)

func main() {
	configPath := flag.String("config", "", "pipeline config YAML (empty = defaults)")
	flag.Parse()

	logger.Init()
	log := logger.Stage("crosswalk")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if len(cfg.PairSources) == 0 {
		log.Fatal("no pair sources configured")
	}

	norm := identifier.New(cfg.BlankTokens)
	builder := crosswalk.NewBuilder(norm, cfg.Columns.Primary, cfg.Columns.Alternate, cfg.MinSupport)

	var pairs []models.IdentifierPair
	var skipped []string
	for _, src := range cfg.PairSources {
		t, err := tabular.ReadCSVEncodings(src.Path, cfg.Encodings)
		if err != nil {
			log.WithError(err).Fatal("failed to read pair source")
		}

		filePairs, err := builder.Pairs(t, src.Tag)
		if err != nil {
			if tabular.IsMissingColumn(err) {
				log.WithError(err).Warn("skipping source without identifier columns")
				skipped = append(skipped, src.Path)
				continue
			}
			log.WithError(err).Fatal("failed to extract identifier pairs")
		}

		log.WithFields(map[string]interface{}{
			"source":   src.Tag,
			"pairs":    len(filePairs),
			"encoding": t.Encoding,
		}).Info("loaded identifier pairs")
		pairs = append(pairs, filePairs...)
	}

	result, err := builder.Build(pairs)
	if err != nil {
		log.WithError(err).Fatal("crosswalk build failed")
	}

	entryRows := make([]map[string]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		entryRows = append(entryRows, map[string]string{
			"primary_id":     e.Primary,
			"alternate_id":   e.Alternate,
			"n_support_rows": strconv.Itoa(e.Support),
			"source_files":   e.Sources,
		})
	}
	xwalkPath := cfg.OutputPath(cfg.CrosswalkFile)
	columns := []string{"primary_id", "alternate_id", "n_support_rows", "source_files"}
	if err := tabular.WriteCSV(xwalkPath, columns, entryRows); err != nil {
		log.WithError(err).Fatal("failed to write crosswalk")
	}

	issuePrimary := cfg.OutputPath("issues__one_primary_many_alternates.csv")
	if err := tabular.WriteCSV(issuePrimary, conflictColumns, conflictRows(result.PrimaryConflicts)); err != nil {
		log.WithError(err).Fatal("failed to write primary conflict report")
	}
	issueAlternate := cfg.OutputPath("issues__one_alternate_many_primaries.csv")
	if err := tabular.WriteCSV(issueAlternate, conflictColumns, conflictRows(result.AlternateConflicts)); err != nil {
		log.WithError(err).Fatal("failed to write alternate conflict report")
	}

	lines := []string{
		"==== CROSSWALK BUILD SUMMARY ====",
		fmt.Sprintf("Total raw pair-rows loaded: %d", result.PairRows),
		fmt.Sprintf("Unique identifier pairs: %d", result.UniquePairs),
		fmt.Sprintf("Resolved crosswalk entries: %d", len(result.Entries)),
		fmt.Sprintf("Excluded below min support (%d): %d", cfg.MinSupport, len(result.BelowSupport)),
		"",
		fmt.Sprintf("Issues: one primary -> multiple alternates: %d", len(result.PrimaryConflicts)),
		fmt.Sprintf("Issues: one alternate -> multiple primaries: %d", len(result.AlternateConflicts)),
		fmt.Sprintf("Sources skipped (missing identifier columns): %d", len(skipped)),
		"",
		"WROTE: " + xwalkPath,
		"WROTE: " + issuePrimary,
		"WROTE: " + issueAlternate,
	}
	if err := tabular.WriteSummary(cfg.OutputPath("crosswalk_build_summary.txt"), lines); err != nil {
		log.WithError(err).Fatal("failed to write summary")
	}

	log.WithFields(map[string]interface{}{
		"entries":             len(result.Entries),
		"primary_conflicts":   len(result.PrimaryConflicts),
		"alternate_conflicts": len(result.AlternateConflicts),
	}).Info("crosswalk build complete")
}

var conflictColumns = []string{"key", "values", "supports"}

func conflictRows(conflicts []models.Conflict) []map[string]string {
	rows := make([]map[string]string, 0, len(conflicts))
	for _, c := range conflicts {
		supports := make([]string, len(c.Supports))
		for i, s := range c.Supports {
			supports[i] = strconv.Itoa(s)
		}
		rows = append(rows, map[string]string{
			"key":      c.Key,
			"values":   strings.Join(c.Values, "|"),
			"supports": strings.Join(supports, "|"),
		})
	}
	return rows
}
