package loader

import (
	"context"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// LoadParquet reads a Parquet memory snapshot written by export.WriteParquet.
// The address and value columns keep their int64 type.
func LoadParquet(path string) (*dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	return snapshot(imports.LoadFromParquet(context.Background(), fr))
}
