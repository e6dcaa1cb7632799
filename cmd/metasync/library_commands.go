package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/host/sqlitehost"
	"github.com/JonMunkholm/metasync/internal/report"
)

func newLibraryCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage a local SQLite media library",
		Long: `Manage a local SQLite media library.

A SQLite library stands in for an editing application's media pool: folders
of clips, each with a metadata table that passes write into.`,
	}
	cmd.AddCommand(newLibraryInitCommand(cc))
	cmd.AddCommand(newLibraryAddCommand(cc))
	cmd.AddCommand(newLibraryShowCommand(cc))
	return cmd
}

// sqliteConfig returns the configuration if it selects a SQLite library.
func sqliteConfig(cc *commandContext) (*config.Config, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Host.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("library commands manage sqlite libraries, backend is %q", cfg.Host.Backend)
	}
	return cfg, nil
}

func newLibraryInitCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sqliteConfig(cc)
			if err != nil {
				return err
			}
			lib, err := sqlitehost.Create(cmd.Context(), cfg.Host.LibraryPath, sqlitehost.WithAllowedKeys(cfg.Host.AllowedKeys))
			if err != nil {
				return err
			}
			defer lib.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Library ready at %s\n", lib.Path())
			return nil
		},
	}
}

func newLibraryAddCommand(cc *commandContext) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "add FILE...",
		Short: "Add clips to a folder, creating the folder path as needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sqliteConfig(cc)
			if err != nil {
				return err
			}
			unlock, err := lockLibrary(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			ctx := cmd.Context()
			lib, err := sqlitehost.OpenExisting(ctx, cfg.Host.LibraryPath)
			if err != nil {
				return err
			}
			defer lib.Close()

			folderID, err := lib.EnsureFolderPath(ctx, folder)
			if err != nil {
				return err
			}
			for _, file := range args {
				name := filepath.Base(file)
				if _, err := lib.AddClip(ctx, folderID, name, ""); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", filepath.ToSlash(filepath.Join(folder, name)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", `Folder path below the root, such as "Day 1/Cam A"`)
	return cmd
}

func newLibraryShowCommand(cc *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List every clip with its metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sqliteConfig(cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			lib, err := sqlitehost.OpenExisting(ctx, cfg.Host.LibraryPath)
			if err != nil {
				return err
			}
			defer lib.Close()

			entries, err := lib.List(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				pairs := make([]string, 0, len(e.Metadata))
				for _, k := range e.SortedKeys() {
					pairs = append(pairs, k+"="+e.Metadata[k])
				}
				rows = append(rows, []string{e.Path, e.FileName, strings.Join(pairs, ", ")})
			}
			return report.Grid(cmd.OutOrStdout(), []string{"Folder", "File", "Metadata"}, rows)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the clips as JSON")
	return cmd
}
