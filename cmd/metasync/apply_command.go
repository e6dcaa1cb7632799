package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/report"
)

// passInput is everything apply and preview share: the service, the loaded
// sheet and the resolved plan.
type passInput struct {
	cfg     *config.Config
	service *core.Service
	sheet   *core.SheetPreview
	plan    mapping.Plan
	close   func()
}

func (in passInput) request() core.ApplyRequest {
	return core.ApplyRequest{Plan: in.plan, Rows: in.sheet.Rows, Source: in.sheet.Source}
}

func loadPass(ctx context.Context, cc *commandContext, src *sourceFlags, pf *planFlags) (*passInput, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, err
	}
	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	source, err := src.source(svc)
	if err != nil {
		closeFn()
		return nil, err
	}
	sheet, err := svc.LoadSheet(ctx, source)
	if err != nil {
		closeFn()
		return nil, err
	}
	plan, err := pf.plan(sheet.Headers)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &passInput{cfg: cfg, service: svc, sheet: sheet, plan: plan, close: closeFn}, nil
}

func newApplyCommand(cc *commandContext) *cobra.Command {
	var (
		src     sourceFlags
		pf      planFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write sheet columns into matching clips",
		Example: `  metasync apply --csv report.csv --library project.db
  metasync apply --sheet-id 1AbC --range "Day 1!A:H" --credentials sa.json --map Scene --map "Cam=Camera #"
  metasync apply --csv report.csv --preset camera-report.toml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := loadPass(ctx, cc, &src, &pf)
			if err != nil {
				return err
			}
			defer in.close()

			unlock, err := lockLibrary(in.cfg)
			if err != nil {
				return err
			}
			defer unlock()

			run, err := in.service.Apply(ctx, in.request())
			if run == nil || run.Outcome == nil {
				return err
			}

			if jsonOut {
				resp := report.Response{Success: err == nil, Outcome: run.Outcome}
				if err != nil {
					resp.Error = err.Error()
				}
				if werr := writeJSON(cmd, resp); werr != nil {
					return werr
				}
				return err
			}
			if werr := report.Table(cmd.OutOrStdout(), run.Outcome); werr != nil {
				return werr
			}
			return err
		},
	}

	src.register(cmd)
	pf.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the outcome as JSON")
	return cmd
}

func newPreviewCommand(cc *commandContext) *cobra.Command {
	var (
		src     sourceFlags
		pf      planFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "preview",
		Aliases: []string{"dry-run"},
		Short:   "Show which rows match and what would be written, without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := loadPass(ctx, cc, &src, &pf)
			if err != nil {
				return err
			}
			defer in.close()

			res, err := in.service.DryRun(ctx, in.request())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			return report.PreviewTable(cmd.OutOrStdout(), res)
		},
	}

	src.register(cmd)
	pf.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the preview as JSON")
	return cmd
}
