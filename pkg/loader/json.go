package loader

import (
	"bytes"
	"context"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// LoadJSON reads a JSON lines memory snapshot, one {"address", "value"}
// object per cell, as written by export.WriteJSON. Numbers decode as float64,
// so cells beyond ±2^53 are rejected by FrameToMemory rather than rounded.
func LoadJSON(path string) (*dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptySnapshot
	}

	return snapshot(imports.LoadFromJSON(context.Background(), bytes.NewReader(data)))
}
