package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// OrderedColumns builds the stable output column order: the identifier
// column first, declared fields next in sorted order, then any extra
// columns observed in the rows, also sorted.
func OrderedColumns(idColumn string, declared []string, rows []map[string]string) []string {
	seen := map[string]struct{}{idColumn: {}}
	columns := []string{idColumn}

	sortedDeclared := append([]string(nil), declared...)
	sort.Strings(sortedDeclared)
	for _, name := range sortedDeclared {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
	}

	var extras []string
	for _, row := range rows {
		for name := range row {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(columns, extras...)
}

// WriteCSV writes rows under the given column order, filling missing cells
// with the empty string. Output is always UTF-8.
func WriteCSV(path string, columns []string, rows []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, name := range columns {
			record[i] = row[name]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteSummary writes the plain-text run summary every stage produces.
func WriteSummary(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
	}
	return nil
}
