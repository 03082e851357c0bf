package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FallbackEncodings is the ordered list of encodings tried when reading a
// legacy export. Latin-1 is last because it accepts every byte sequence.
var FallbackEncodings = []string{"utf-8", "utf-8-sig", "cp1252", "latin1"}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Table is one tabular file fully loaded into memory. Header names are
// cleaned of non-breaking spaces and surrounding whitespace; cell values
// are kept verbatim.
type Table struct {
	Path     string
	Encoding string // which fallback encoding decoded the file
	Header   []string
	Rows     []map[string]string
}

// ReadCSV loads path, trying each encoding of the fallback policy in order.
func ReadCSV(path string) (*Table, error) {
	return ReadCSVEncodings(path, FallbackEncodings)
}

func ReadCSVEncodings(path string, encodings []string) (*Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(encodings) == 0 {
		encodings = FallbackEncodings
	}

	var lastErr error
	for _, enc := range encodings {
		decoded, ok := decode(raw, enc)
		if !ok {
			continue
		}
		table, err := parse(path, decoded)
		if err != nil {
			lastErr = err
			continue
		}
		table.Encoding = enc
		return table, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("parse %s: %w", path, lastErr)
	}
	return nil, fmt.Errorf("read %s: no fallback encoding accepted the file", path)
}

func decode(raw []byte, encoding string) (string, bool) {
	switch encoding {
	case "utf-8":
		if !utf8.Valid(raw) || bytes.HasPrefix(raw, utf8BOM) {
			return "", false
		}
		return string(raw), true
	case "utf-8-sig":
		if !bytes.HasPrefix(raw, utf8BOM) {
			return "", false
		}
		stripped := bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(stripped) {
			return "", false
		}
		return string(stripped), true
	case "cp1252":
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	case "latin1":
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	default:
		return "", false
	}
}

func parse(path, content string) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{Path: path}, nil
	}
	if err != nil {
		return nil, err
	}

	for i, name := range header {
		header[i] = Clean(name)
	}

	table := &Table{Path: path, Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Clean strips the non-breaking spaces and stray whitespace legacy
// exports leave in column names and cells.
func Clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
}

// Column locates a column by the prioritized candidate list.
func (t *Table) Column(candidates []string) (string, error) {
	if name, ok := FindColumn(t.Header, candidates); ok {
		return name, nil
	}
	return "", ColumnError{File: t.Path, Candidates: candidates}
}

// HasColumn reports whether name is present verbatim in the header.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}
