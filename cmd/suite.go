package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqcheck/internal/suite"
	"github.com/KaramelBytes/dqcheck/internal/utils"
)

var (
	suiteDescription string
	suiteSchedule    string
	suiteDsName      string
	suiteDsDesc      string
	suiteDsIDColumn  string
	suiteDsDelimiter string
	suiteDsEncoding  string
)

var suiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Manage named sets of datasets checked together",
}

var suiteInitCmd = &cobra.Command{
	Use:   "init <suite-name>",
	Short: "Initialize a new suite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, err := resolveSuiteDirByName(name)
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing suite.
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(dir, utils.SuiteManifest)); err == nil {
				return fmt.Errorf("suite already exists at %s", dir)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("inspect suite directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize suite", dir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat suite directory: %w", err)
		}
		s := suite.New(name, suiteDescription, dir)
		if err := s.SetSchedule(suiteSchedule); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Suite initialized: %s\n", dir)
		return nil
	},
}

var suiteAddCmd = &cobra.Command{
	Use:   "add <suite-name> <path|s3://bucket/key>...",
	Short: "Add datasets to a suite",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSuite(args[0])
		if err != nil {
			return err
		}
		locations := args[1:]
		if suiteDsName != "" && len(locations) > 1 {
			return errors.New("--name can only be used with a single dataset")
		}
		for _, loc := range locations {
			d, err := s.AddDataset(loc, suite.Dataset{
				Name:        suiteDsName,
				Description: suiteDsDesc,
				IDColumn:    suiteDsIDColumn,
				Delimiter:   suiteDsDelimiter,
				Encoding:    suiteDsEncoding,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%s)\n", d.Name, d.ID)
		}
		return s.Save()
	},
}

var suiteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := suitesRoot()
		if err != nil {
			return err
		}
		dirs, err := os.ReadDir(root)
		if err != nil {
			return err
		}
		found := false
		for _, e := range dirs {
			if !e.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, e.Name(), utils.SuiteManifest)); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", e.Name())
				found = true
			}
		}
		if !found {
			fmt.Fprintln(cmd.OutOrStdout(), "(no suites)")
		}
		return nil
	},
}

var suiteShowCmd = &cobra.Command{
	Use:   "show [suite-name]",
	Short: "Show a suite's datasets and schedule (default: the suite enclosing the working directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		s, err := suiteByNameOrCwd(name)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Suite: %s\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", s.Description)
		}
		if s.Schedule != "" {
			fmt.Fprintf(out, "Schedule: %s\n", s.Schedule)
		}
		fmt.Fprintf(out, "Reports: %s\n", s.ReportsDir())
		if len(s.Datasets) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range s.Sorted() {
			var extra []string
			if d.IDColumn != "" {
				extra = append(extra, "id_column="+d.IDColumn)
			}
			if d.Delimiter != "" {
				extra = append(extra, "delimiter="+d.Delimiter)
			}
			if d.Encoding != "" {
				extra = append(extra, "encoding="+d.Encoding)
			}
			line := fmt.Sprintf("- %s: %s (%s)", d.ID, d.Name, d.Location)
			if len(extra) > 0 {
				line += " [" + strings.Join(extra, ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var suiteRemoveCmd = &cobra.Command{
	Use:   "remove <suite-name> <dataset-id|name>",
	Short: "Remove a dataset from a suite",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSuite(args[0])
		if err != nil {
			return err
		}
		if err := s.RemoveDataset(args[1]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from %s\n", args[1], s.Name)
		return nil
	},
}

// suitesRoot resolves the configured suites directory, expanding a leading ~.
func suitesRoot() (string, error) {
	dir := settings().SuitesDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".dqcheck", "suites")
	} else if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveSuiteDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("suite name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid suite name %q", name)
	}
	root, err := suitesRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// currentSuite loads the suite enclosing the working directory.
func currentSuite() (*suite.Suite, error) {
	dir, err := utils.FindSuiteRoot("")
	if err != nil {
		return nil, fmt.Errorf("no suite given and none found from the working directory: %w", err)
	}
	return suite.Load(dir)
}

// suiteByNameOrCwd loads the named suite, or the enclosing one when name is empty.
func suiteByNameOrCwd(name string) (*suite.Suite, error) {
	if name == "" {
		return currentSuite()
	}
	return loadSuite(name)
}

func loadSuite(name string) (*suite.Suite, error) {
	dir, err := resolveSuiteDirByName(name)
	if err != nil {
		return nil, err
	}
	return suite.Load(dir)
}

func init() {
	rootCmd.AddCommand(suiteCmd)
	suiteCmd.AddCommand(suiteInitCmd, suiteAddCmd, suiteListCmd, suiteShowCmd, suiteRemoveCmd)

	suiteInitCmd.Flags().StringVarP(&suiteDescription, "desc", "d", "", "suite description")
	suiteInitCmd.Flags().StringVar(&suiteSchedule, "schedule", "", "cron schedule used by watch --suite (six fields, seconds first)")

	suiteAddCmd.Flags().StringVar(&suiteDsName, "name", "", "display name (default: file name)")
	suiteAddCmd.Flags().StringVar(&suiteDsDesc, "desc", "", "dataset description")
	suiteAddCmd.Flags().StringVar(&suiteDsIDColumn, "id-column", "", "column that must hold unique values")
	suiteAddCmd.Flags().StringVar(&suiteDsDelimiter, "delimiter", "", "field delimiter override")
	suiteAddCmd.Flags().StringVar(&suiteDsEncoding, "encoding", "", "input encoding override")
}
