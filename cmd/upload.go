// File: cmd/upload.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkfeed/internal/browser"
	"github.com/xkilldash9x/linkfeed/internal/config"
	"github.com/xkilldash9x/linkfeed/internal/engine"
	"github.com/xkilldash9x/linkfeed/internal/extract"
	"github.com/xkilldash9x/linkfeed/internal/linkfile"
	"github.com/xkilldash9x/linkfeed/internal/observability"
	"github.com/xkilldash9x/linkfeed/internal/operator"
	"github.com/xkilldash9x/linkfeed/internal/orchestrator"
	"github.com/xkilldash9x/linkfeed/internal/selector"
)

// browserSession is what the commands need from a running browser.
type browserSession interface {
	engine.Page
	extract.Fetcher
	Close() error
}

// newBrowserSession is replaced in tests.
var newBrowserSession = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browserSession, error) {
	s, err := browser.NewSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newUploadCmd(v *viper.Viper) *cobra.Command {
	var noWait bool

	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Submit a range of links to the notebook's add-source dialog",
		Long: `Upload opens the notebook in Chrome, waits for you to log in, then adds
each selected URL from the link file as a website source.`,
		Example: `  linkfeed upload --url https://notebooklm.google.com/notebook/abc --start 10 --max 25`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("no-wait") {
				cfg.Operator.ConfirmExit = !noWait
			}
			if cfg.Target.URL == "" {
				return errors.New("a notebook URL is required (--url or target.url)")
			}
			return runUpload(cmd.Context(), cfg, observability.GetLogger(), cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}

	flags := uploadCmd.Flags()
	flags.String("url", "", "URL of the notebook that receives the sources")
	flags.StringP("file", "f", "", "numbered link file (default aws_links.txt)")
	flags.Int("start", 1, "first entry to submit, 1-based")
	flags.Int("end", 0, "last entry to submit, inclusive (0 for the end of the file)")
	flags.Int("max", 0, "maximum number of entries to submit (0 for no limit)")
	flags.BoolVar(&noWait, "no-wait", false, "close the browser without waiting for Enter")

	bindFlag(v, uploadCmd, "target.url", "url")
	bindFlag(v, uploadCmd, "batch.file", "file")
	bindFlag(v, uploadCmd, "batch.start", "start")
	bindFlag(v, uploadCmd, "batch.end", "end")
	bindFlag(v, uploadCmd, "batch.max", "max")

	return uploadCmd
}

func runUpload(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, in io.Reader) error {
	catalog, err := buildCatalog(cfg.Selectors)
	if err != nil {
		return err
	}

	items, err := linkfile.ReadFile(cfg.Batch.File)
	if err != nil {
		return err
	}
	selected, err := linkfile.Select(items, cfg.Batch.Start, cfg.Batch.End, cfg.Batch.Max)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintf(out, "No links selected from %s (%d entries, starting at %d).\n", cfg.Batch.File, len(items), cfg.Batch.Start)
		return nil
	}
	fmt.Fprintf(out, "Uploading entries %d to %d (%d links) of %d from %s\n",
		selected[0].Position, selected[len(selected)-1].Position, len(selected), len(items), cfg.Batch.File)

	session, err := newBrowserSession(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Error closing browser.", zap.Error(err))
		}
	}()

	gate := operator.NewGate(in, out)
	orch := orchestrator.New(session, catalog, cfg.Wait, logger, out)

	runErr := func() error {
		if err := orch.Startup(ctx, cfg.Target.URL); err != nil {
			return err
		}
		if cfg.Operator.PauseAfterStartup {
			if err := gate.Wait(ctx, "Workspace ready. Press Enter to start uploading..."); err != nil {
				return err
			}
		}
		summary, err := orch.Run(ctx, selected)
		printSummary(out, summary)
		return err
	}()

	if cfg.Operator.ConfirmExit && ctx.Err() == nil {
		prompt := "Done. Press Enter to close the browser..."
		if runErr != nil {
			prompt = "The browser stays open for inspection. Press Enter to close it..."
		}
		if err := gate.Wait(ctx, prompt); err != nil {
			logger.Debug("Exit gate interrupted.", zap.Error(err))
		}
	}
	return runErr
}

func printSummary(out io.Writer, s orchestrator.Summary) {
	fmt.Fprintf(out, "\nSubmitted %d of %d links in %s", s.Submitted, s.Total, s.Elapsed.Round(time.Second))
	if s.Unconfirmed > 0 {
		fmt.Fprintf(out, " (%d without completion evidence)", s.Unconfirmed)
	}
	fmt.Fprintf(out, ". Run %s\n", s.RunID)
}

// buildCatalog applies configured selector lists over the defaults.
func buildCatalog(sel config.SelectorsConfig) (*selector.Catalog, error) {
	catalog := selector.DefaultCatalog().
		Override(selector.OpenAddDialog, sel.OpenAddDialog).
		Override(selector.SelectWebsiteOption, sel.SelectWebsiteOption).
		Override(selector.FillURLField, sel.FillURLField).
		Override(selector.ClickInsert, sel.ClickInsert).
		OverrideIndicators(selector.Ready, sel.Ready).
		OverrideIndicators(selector.Chooser, sel.Chooser).
		OverrideIndicators(selector.Evidence, sel.Evidence).
		OverrideIndicators(selector.NextReady, sel.NextReady).
		OverrideIndicators(selector.Section, sel.Section)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}
