package tabular

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingFile = errors.New("missing input file")
	ErrEmptyResult = errors.New("empty result")
)

// ColumnError reports that none of the candidate names matched a column.
// Stages decide whether this skips the file or aborts the run.
type ColumnError struct {
	File       string
	Candidates []string
}

func (e ColumnError) Error() string {
	return fmt.Sprintf("no column matching [%s] in %s", strings.Join(e.Candidates, ", "), e.File)
}

func IsMissingColumn(err error) bool {
	var ce ColumnError
	return errors.As(err, &ce)
}
