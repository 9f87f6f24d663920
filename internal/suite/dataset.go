package suite

import (
	"time"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

// Dataset is one location checked by a suite, with per-dataset parsing overrides.
type Dataset struct {
	ID          string    `yaml:"id"`
	Location    string    `yaml:"location"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	IDColumn    string    `yaml:"id_column,omitempty"`
	Delimiter   string    `yaml:"delimiter,omitempty"`
	Encoding    string    `yaml:"encoding,omitempty"`
	AddedAt     time.Time `yaml:"added_at"`
}

// Options layers the dataset's overrides on top of base.
func (d *Dataset) Options(base analysis.Options) (analysis.Options, error) {
	opt := base
	if d.IDColumn != "" {
		opt.IDColumn = d.IDColumn
	}
	if d.Delimiter != "" {
		r, err := dataset.ParseDelimiter(d.Delimiter)
		if err != nil {
			return opt, err
		}
		opt.Load.Delimiter = r
	}
	if d.Encoding != "" {
		opt.Load.Encoding = d.Encoding
	}
	return opt, nil
}
