package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/innov8academy/newsletter-auto/internal/app"
	"github.com/innov8academy/newsletter-auto/internal/config"
	"github.com/innov8academy/newsletter-auto/internal/logger"
	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/rss"
)

func main() {
	root := &cobra.Command{
		Use:   "newsletter",
		Short: "AI news curation for the newsletter",
		Long: `newsletter reads the configured AI news feeds, asks an LLM to pull out
the individual stories, merges duplicates across sources and ranks what is
left by importance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		curateCmd(),
		newsCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration, installs the logger and builds the app.
func setup() (*config.Config, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log := logger.Init(cfg.Debug)
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func curateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Run one curation and print the ranked stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			feedsPath, _ := cmd.Flags().GetString("feeds")
			outPath, _ := cmd.Flags().GetString("out")
			notify, _ := cmd.Flags().GetBool("notify")

			cfg, a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			var custom []rss.FeedSource
			if feedsPath != "" {
				custom, err = rss.LoadFeeds(feedsPath)
				if err != nil {
					return fmt.Errorf("load custom feeds: %w", err)
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			res, err := a.Curate(ctx, cfg.LLMAPIKey, custom, func(p news.Progress) {
				if p.Stage == news.StageExtracting {
					logger.Debug("curation progress", "stage", p.Stage, "current", p.Current, "total", p.Total, "message", p.Message)
					return
				}
				logger.Info("curation progress", "stage", p.Stage, "message", p.Message)
			})
			if err != nil {
				return err
			}

			if err := writeResult(outPath, res); err != nil {
				return err
			}

			if notify {
				n, err := a.Notify(ctx, res)
				if errors.Is(err, app.ErrTelegramDisabled) {
					logger.Warn("--notify ignored, TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are not set")
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("digest delivered", "stories", n)
			}
			return nil
		},
	}
	cmd.Flags().String("feeds", "", "YAML file with extra feeds for this run")
	cmd.Flags().StringP("out", "o", "", "write the result JSON to a file instead of stdout")
	cmd.Flags().Bool("notify", false, "send the top stories to Telegram")
	return cmd
}

func writeResult(path string, res *news.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("result written", "path", path, "stories", len(res.Stories))
	return nil
}

func newsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "List recent feed items without LLM analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			_, a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			items := a.News(ctx, days)
			for _, item := range items {
				fmt.Printf("%s  %-24s %s\n  %s\n", item.PublishedAt.Format("2006-01-02 15:04"), item.SourceName, item.Title, item.URL)
			}
			fmt.Printf("\n%d items\n", len(items))
			return nil
		},
	}
	cmd.Flags().Int("days", 3, "only show items from the last N days")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			addr := cfg.HTTPAddr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			ctx, cancel := signalContext()
			defer cancel()
			return a.Serve(ctx, addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address (overrides HTTP_ADDR)")
	return cmd
}
