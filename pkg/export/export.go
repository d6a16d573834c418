// Package export writes memory snapshots and execution traces to disk.
//
// Frames come from vm.Memory.Frame and vm.VM.TraceFrame. CSV and JSON lines
// snapshots can be loaded back with loader.LoadImage.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/xitongsys/parquet-go-source/local"
)

// ErrUnsupportedFormat is returned for unknown output extensions.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// WriteCSV writes df as CSV with a header row.
func WriteCSV(ctx context.Context, w io.Writer, df *dataframe.DataFrame) error {
	return exports.ExportToCSV(ctx, w, df)
}

// WriteJSON writes df as JSON lines, one object per row.
func WriteJSON(ctx context.Context, w io.Writer, df *dataframe.DataFrame) error {
	return exports.ExportToJSON(ctx, w, df)
}

// WriteParquet writes df to a Parquet file at path.
func WriteParquet(ctx context.Context, path string, df *dataframe.DataFrame) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}

	if err := exports.ExportToParquet(ctx, fw, df); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

// WriteFile writes df to path, choosing the format by extension.
func WriteFile(ctx context.Context, path string, df *dataframe.DataFrame) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".parquet" {
		return WriteParquet(ctx, path, df)
	}

	var write func(context.Context, io.Writer, *dataframe.DataFrame) error
	switch ext {
	case ".csv":
		write = WriteCSV
	case ".json", ".jsonl":
		write = WriteJSON
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(ctx, f, df); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
