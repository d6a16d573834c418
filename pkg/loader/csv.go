package loader

import (
	"context"
	"errors"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// Snapshot errors
var (
	ErrEmptySnapshot = errors.New("snapshot has no columns")
)

// LoadCSV reads a memory snapshot written by export.WriteCSV. The header row
// must name a value column; an address column is optional. Column types are
// inferred, so integer cells arrive as int64.
func LoadCSV(path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return snapshot(imports.LoadFromCSV(context.Background(), file, imports.CSVLoadOptions{
		InferDataTypes: true,
	}))
}

// snapshot rejects frames that cannot hold any memory cells.
func snapshot(df *dataframe.DataFrame, err error) (*dataframe.DataFrame, error) {
	if err != nil {
		return nil, err
	}
	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptySnapshot
	}
	return df, nil
}
