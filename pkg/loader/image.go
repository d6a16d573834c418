package loader

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/intcode/pkg/vm"
)

// Image errors
var (
	ErrNoValueColumn = errors.New("frame has no value column")
	ErrInvalidCell   = errors.New("invalid memory cell")
)

// MaxImageCells bounds the memory an address column may request.
const MaxImageCells = 1 << 24

// LoadImage loads an initial memory image, choosing the decoder by file
// extension: .csv, .json/.jsonl and .parquet are memory snapshots, .icbc is
// the binary image format, anything else is program text.
func LoadImage(path string) ([]int64, error) {
	var (
		df  *dataframe.DataFrame
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		df, err = LoadCSV(path)
	case ".json", ".jsonl":
		df, err = LoadJSON(path)
	case ".parquet":
		df, err = LoadParquet(path)
	case ".icbc":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return vm.DeserializeImage(data)
	default:
		return LoadProgram(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cells, err := FrameToMemory(df)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// FrameToMemory converts a memory snapshot frame into cells. The frame must
// have a value column. With an address column the values are scattered to
// their addresses and gaps are zero; without one they are taken in row order.
func FrameToMemory(df *dataframe.DataFrame) ([]int64, error) {
	valIdx, err := df.NameToColumn(vm.ColValue)
	if err != nil {
		return nil, ErrNoValueColumn
	}
	values := df.Series[valIdx]
	n := values.NRows()

	addrIdx, err := df.NameToColumn(vm.ColAddress)
	if err != nil {
		cells := make([]int64, n)
		for i := range cells {
			if cells[i], err = cellValue(values, i); err != nil {
				return nil, err
			}
		}
		return cells, nil
	}

	addrs := df.Series[addrIdx]
	addrVals := make([]int64, n)
	size := int64(0)
	for i := 0; i < n; i++ {
		a, err := cellValue(addrs, i)
		if err != nil {
			return nil, err
		}
		if a < 0 || a >= MaxImageCells {
			return nil, fmt.Errorf("%w: address %d at row %d", ErrInvalidCell, a, i)
		}
		addrVals[i] = a
		if a+1 > size {
			size = a + 1
		}
	}

	cells := make([]int64, size)
	for i, a := range addrVals {
		if cells[a], err = cellValue(values, i); err != nil {
			return nil, err
		}
	}
	return cells, nil
}

// maxExactFloat is the largest magnitude at which every integer has an exact
// float64 representation. JSON snapshots decode numbers as float64, so larger
// cells cannot be recovered from them.
const maxExactFloat = 1 << 53

// cellValue extracts an integer from a series row.
func cellValue(s dataframe.Series, i int) (int64, error) {
	v := s.Value(i)
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("%w: %v in %s row %d", ErrInvalidCell, val, s.Name(), i)
		}
		if math.Abs(val) > maxExactFloat {
			return 0, fmt.Errorf("%w: %v in %s row %d exceeds exact float range", ErrInvalidCell, val, s.Name(), i)
		}
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q in %s row %d", ErrInvalidCell, val, s.Name(), i)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %v in %s row %d", ErrInvalidCell, v, s.Name(), i)
	}
}
