package suite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/suite"
)

func TestSuiteRoundTripAndTargets(t *testing.T) {
	tdir := t.TempDir()
	p1 := filepath.Join(tdir, "orders.csv")
	p2 := filepath.Join(tdir, "items.tsv")
	if err := os.WriteFile(p1, []byte("id\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p2, []byte("sku\tqty\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := suite.New("nightly", "warehouse feeds", filepath.Join(tdir, "suite"))
	if _, err := s.AddDataset(p1, suite.Dataset{IDColumn: "id"}); err != nil {
		t.Fatalf("add orders: %v", err)
	}
	if _, err := s.AddDataset(p2, suite.Dataset{Delimiter: "tab", IDColumn: "sku"}); err != nil {
		t.Fatalf("add items: %v", err)
	}
	if _, err := s.AddDataset("s3://lake/raw/events.csv", suite.Dataset{}); err != nil {
		t.Fatalf("add s3: %v", err)
	}
	if _, err := s.AddDataset(p1, suite.Dataset{}); err == nil {
		t.Fatalf("expected duplicate location error")
	}
	if err := s.SetSchedule("0 0 * * * *"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := suite.Load(s.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "nightly" || loaded.Schedule != "0 0 * * * *" || len(loaded.Datasets) != 3 {
		t.Fatalf("loaded suite = %+v", loaded)
	}
	targets, err := loaded.Targets(analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	// sorted by name: events.csv, items.tsv, orders.csv
	if targets[0].Location != "s3://lake/raw/events.csv" {
		t.Fatalf("first target = %+v", targets[0])
	}
	if targets[1].Options.Load.Delimiter != '\t' || targets[1].Options.IDColumn != "sku" {
		t.Fatalf("items options = %+v", targets[1].Options)
	}
	if targets[2].Options.IDColumn != "id" || targets[2].Options.MaxRows != 1_000_000 {
		t.Fatalf("orders options = %+v", targets[2].Options)
	}
}

func TestSuiteRejectsBadInput(t *testing.T) {
	s := suite.New("x", "", t.TempDir())
	if _, err := s.AddDataset(filepath.Join(t.TempDir(), "missing.csv"), suite.Dataset{}); err == nil {
		t.Fatalf("expected stat error")
	}
	if _, err := s.AddDataset("-", suite.Dataset{}); err == nil {
		t.Fatalf("stdin cannot be a suite dataset")
	}
	if _, err := s.AddDataset("s3://b/k.csv", suite.Dataset{Delimiter: "#"}); err == nil {
		t.Fatalf("expected delimiter error")
	}
	if err := s.SetSchedule("whenever"); err == nil {
		t.Fatalf("expected schedule error")
	}
	if _, err := s.Targets(analysis.DefaultOptions()); err == nil {
		t.Fatalf("expected error for empty suite")
	}
	if _, err := suite.Load(t.TempDir()); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestRemoveDataset(t *testing.T) {
	s := suite.New("x", "", t.TempDir())
	d, err := s.AddDataset("s3://b/k.csv", suite.Dataset{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveDataset(d.Name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.Datasets) != 0 {
		t.Fatalf("datasets = %v", s.Datasets)
	}
	if err := s.RemoveDataset("k.csv"); err == nil {
		t.Fatalf("expected error removing twice")
	}
}
