package suite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/schedule"
	"github.com/KaramelBytes/dqcheck/internal/source"
	"github.com/KaramelBytes/dqcheck/internal/utils"
)

// Suite is a named set of datasets checked together, persisted as suite.yaml.
type Suite struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Schedule    string              `yaml:"schedule,omitempty"`
	Datasets    map[string]*Dataset `yaml:"datasets"`
	CreatedAt   time.Time           `yaml:"created_at"`
	UpdatedAt   time.Time           `yaml:"updated_at"`

	rootDir string
}

// New constructs an in-memory suite. Call Save() to persist.
func New(name, description, rootDir string) *Suite {
	now := time.Now()
	return &Suite{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads suite.yaml from dir.
func Load(dir string) (*Suite, error) {
	path := filepath.Join(dir, utils.SuiteManifest)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("suite not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read suite: %w", err)
	}
	var s Suite
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if s.Datasets == nil {
		s.Datasets = make(map[string]*Dataset)
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk suite directory path.
func (s *Suite) RootDir() string { return s.rootDir }

// ReportsDir is where batch runs write reports for this suite.
func (s *Suite) ReportsDir() string { return filepath.Join(s.rootDir, "reports") }

// Save writes suite.yaml using atomic write.
func (s *Suite) Save() error {
	if s.rootDir == "" {
		return errors.New("suite root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	s.UpdatedAt = time.Now()
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal suite: %w", err)
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, utils.SuiteManifest), data)
}

// SetSchedule validates and stores a cron schedule. Empty clears it.
func (s *Suite) SetSchedule(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec != "" {
		if err := schedule.Validate(spec); err != nil {
			return err
		}
	}
	s.Schedule = spec
	s.UpdatedAt = time.Now()
	return nil
}

// AddDataset registers location. Local paths must exist and are stored absolute.
func (s *Suite) AddDataset(location string, d Dataset) (*Dataset, error) {
	if location == "" || location == source.Stdin {
		return nil, fmt.Errorf("dataset location must be a file path or s3:// URI")
	}
	name := filepath.Base(location)
	if !source.IsS3(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat dataset: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", location)
		}
		location = abs
	}
	for _, existing := range s.Datasets {
		if existing.Location == location {
			return nil, fmt.Errorf("dataset %s already in suite", location)
		}
	}
	if _, err := d.Options(analysis.DefaultOptions()); err != nil {
		return nil, err
	}
	d.ID = uuid.NewString()
	d.Location = location
	if d.Name == "" {
		d.Name = name
	}
	d.AddedAt = time.Now()
	if s.Datasets == nil {
		s.Datasets = make(map[string]*Dataset)
	}
	s.Datasets[d.ID] = &d
	s.UpdatedAt = time.Now()
	return &d, nil
}

// RemoveDataset deletes a dataset by ID or name.
func (s *Suite) RemoveDataset(ref string) error {
	for id, d := range s.Datasets {
		if id == ref || d.Name == ref {
			delete(s.Datasets, id)
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("dataset %q not in suite", ref)
}

// Sorted returns datasets ordered by name, then ID.
func (s *Suite) Sorted() []*Dataset {
	out := make([]*Dataset, 0, len(s.Datasets))
	for _, d := range s.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Targets resolves every dataset into a scheduling target using base options.
func (s *Suite) Targets(base analysis.Options) ([]schedule.Target, error) {
	if len(s.Datasets) == 0 {
		return nil, errors.New("no datasets in suite")
	}
	var out []schedule.Target
	for _, d := range s.Sorted() {
		opt, err := d.Options(base)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		out = append(out, schedule.Target{Location: d.Location, Options: opt})
	}
	return out, nil
}
