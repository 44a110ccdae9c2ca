// File: cmd/extract.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkfeed/internal/extract"
	"github.com/xkilldash9x/linkfeed/internal/linkfile"
	"github.com/xkilldash9x/linkfeed/internal/observability"
)

func newExtractCmd(v *viper.Viper) *cobra.Command {
	var pageURLs []string

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Build a link file from a documentation page's table of contents",
		Example: `  linkfeed extract --url https://docs.aws.amazon.com/AmazonS3/latest/userguide/Welcome.html
  linkfeed extract --static -o s3_links.txt --url https://docs.aws.amazon.com/a --url https://docs.aws.amazon.com/b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var fetcher extract.Fetcher
			// One tab renders one page at a time.
			concurrency := 1
			if cfg.Extract.Static {
				fetcher = extract.StaticFetcher{UserAgent: cfg.Browser.UserAgent, Timeout: cfg.Extract.Timeout}
				concurrency = cfg.Extract.Concurrency
			} else {
				browserCfg := cfg.Browser
				browserCfg.Headless = cfg.Extract.Headless
				session, err := newBrowserSession(ctx, browserCfg, logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := session.Close(); err != nil {
						logger.Warn("Error closing browser.", zap.Error(err))
					}
				}()
				fetcher = session
			}

			fetchCtx, cancel := context.WithTimeout(ctx, cfg.Extract.Timeout*time.Duration(len(pageURLs)))
			defer cancel()

			links, err := extract.New(fetcher, cfg.Extract.Container, logger).
				Throttle(concurrency, cfg.Extract.RateLimit).
				ExtractAll(fetchCtx, pageURLs)
			if err != nil {
				return err
			}
			if err := linkfile.WriteFile(cfg.Extract.Output, links); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, l := range links {
				fmt.Fprintf(out, "%d. %s: %s\n", i+1, l.Text, l.URL)
			}
			fmt.Fprintf(out, "Saved %d links to %s\n", len(links), cfg.Extract.Output)
			return nil
		},
	}

	flags := extractCmd.Flags()
	flags.StringSliceVar(&pageURLs, "url", nil, "documentation page to read the table of contents from (repeatable)")
	flags.StringP("output", "o", "", "link file to write (default aws_links.txt)")
	flags.Bool("static", false, "fetch the page over HTTP instead of rendering it")
	flags.String("container", "", "CSS selector of the table of contents container")
	_ = extractCmd.MarkFlagRequired("url")

	bindFlag(v, extractCmd, "extract.output", "output")
	bindFlag(v, extractCmd, "extract.static", "static")
	bindFlag(v, extractCmd, "extract.container", "container")

	return extractCmd
}
