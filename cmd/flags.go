package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

// checkFlags are the parsing and expectation overrides shared by analysis commands.
type checkFlags struct {
	idColumn  string
	delimiter string
	encoding  string
	minRows   int
	maxRows   int
}

func (f *checkFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.idColumn, "id-column", "", "column that must hold unique values (default: first column)")
	fs.StringVar(&f.delimiter, "delimiter", "", "field delimiter: ',' | ';' | 'tab' | '|' (default: by extension, then sniffed)")
	fs.StringVar(&f.encoding, "encoding", "", "input encoding, e.g. utf-8, latin1, windows-1252, utf-16le")
	fs.IntVar(&f.minRows, "min-rows", 1, "minimum accepted row count")
	fs.IntVar(&f.maxRows, "max-rows", 1_000_000, "maximum accepted row count")
}

// apply overlays flags the user set explicitly onto opt.
func (f *checkFlags) apply(fs *pflag.FlagSet, opt *analysis.Options) error {
	if fs.Changed("id-column") {
		opt.IDColumn = f.idColumn
	}
	if fs.Changed("delimiter") {
		d, err := dataset.ParseDelimiter(f.delimiter)
		if err != nil {
			return err
		}
		opt.Load.Delimiter = d
	}
	if fs.Changed("encoding") {
		opt.Load.Encoding = f.encoding
	}
	if fs.Changed("min-rows") {
		opt.MinRows = f.minRows
	}
	if fs.Changed("max-rows") {
		opt.MaxRows = f.maxRows
	}
	if opt.MinRows < 0 || opt.MaxRows < opt.MinRows {
		return fmt.Errorf("invalid row bounds [%d, %d]", opt.MinRows, opt.MaxRows)
	}
	return nil
}
