package vm

import (
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// Column names used by memory and trace frames.
const (
	ColAddress = "address"
	ColValue   = "value"
	ColStep    = "step"
	ColPC      = "pc"
	ColRaw     = "raw"
	ColOpcode  = "opcode"
	ColParams  = "params"
	ColModes   = "modes"
)

// Frame returns the memory contents as a two-column frame (address, value).
func (m *Memory) Frame() *dataframe.DataFrame {
	addrs := make([]int64, len(m.cells))
	for i := range addrs {
		addrs[i] = int64(i)
	}
	return dataframe.NewDataFrame(
		newInt64Series(ColAddress, addrs),
		newInt64Series(ColValue, m.cells),
	)
}

// TraceFrame returns the recorded trace, one row per executed instruction.
// Params are comma-joined; modes are one letter per operand (A or I).
func (vm *VM) TraceFrame() *dataframe.DataFrame {
	n := len(vm.trace)
	steps := make([]int64, n)
	pcs := make([]int64, n)
	raws := make([]int64, n)
	names := make([]string, n)
	params := make([]string, n)
	modes := make([]string, n)

	for i, e := range vm.trace {
		steps[i] = e.Step
		pcs[i] = e.PC
		raws[i] = e.Raw
		names[i] = e.Opcode
		params[i] = joinInt64(e.Params)
		modes[i] = modeLetters(e.Modes)
	}

	return dataframe.NewDataFrame(
		newInt64Series(ColStep, steps),
		newInt64Series(ColPC, pcs),
		newInt64Series(ColRaw, raws),
		newStringSeries(ColOpcode, names),
		newStringSeries(ColParams, params),
		newStringSeries(ColModes, modes),
	)
}

// newInt64Series creates a new SeriesInt64 with the given name and data.
func newInt64Series(name string, data []int64) *dataframe.SeriesInt64 {
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesInt64(name, nil, vals...)
}

// newStringSeries creates a new SeriesString with the given name and data.
func newStringSeries(name string, data []string) *dataframe.SeriesString {
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesString(name, nil, vals...)
}

func joinInt64(vals []int64) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

func modeLetters(modes []Mode) string {
	var b strings.Builder
	for _, m := range modes {
		if m == ModeImmediate {
			b.WriteByte('I')
		} else {
			b.WriteByte('A')
		}
	}
	return b.String()
}
