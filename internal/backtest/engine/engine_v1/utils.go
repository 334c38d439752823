package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// containsPath reports whether child is parent or lies beneath it.
func containsPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resultWriter is the lifecycle shared by the parquet result writers.
type resultWriter[T any] interface {
	Initialize() error
	Write(rows []T) error
	Flush() error
	Close() error
}

// writeParquet writes rows through w and exports them. An empty slice still
// produces a file with the schema.
func writeParquet[T any, W resultWriter[T]](w W, rows []T) (err error) {
	if err := w.Initialize(); err != nil {
		return err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := w.Write(rows); err != nil {
		return err
	}

	return w.Flush()
}

// getResultFolder returns <results>/<symbol>, nested under a <start>_<end>
// folder when the config limits the period.
func getResultFolder(resultsFolder string, symbol string, config BacktestEngineV1Config) string {
	if config.StartTime.IsNone() && config.EndTime.IsNone() {
		return filepath.Join(resultsFolder, symbol)
	}

	startTimeStr := "all"
	endTimeStr := "all"

	if config.StartTime.IsSome() {
		startTimeStr = config.StartTime.Unwrap().Format("20060102")
	}

	if config.EndTime.IsSome() {
		endTimeStr = config.EndTime.Unwrap().Format("20060102")
	}

	return filepath.Join(resultsFolder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr), symbol)
}
