// Command-line interface for scout: research a question or crawl links from
// the terminal, printing crawl progress as it happens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"scout/scout/config"
	"scout/scout/services/crawler"
	"scout/scout/services/llm"
	"scout/scout/services/scraper"
	"scout/scout/services/websearch"
	"scout/scout/sources/psql"
	"scout/scout/sources/psql/dao"
	"scout/scout/utils/color"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Recursive web research agent",
		Long: `scout expands a question into search queries, crawls the results and
lets an agent summarize every page and choose which link to follow next.

Summaries are kept in memory and printed at the end, or written to
postgres with --store postgres.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("store", "memory", "Knowledge store: memory or postgres")
	cmd.PersistentFlags().String("renderer", "", "Page renderer: playwright or static (default from RENDERER)")
	cmd.PersistentFlags().IntP("timeout", "t", 0, "Stop crawling after this many seconds (0 waits for completion)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Do not print crawl events")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewBrowseCmd())
	return cmd
}

func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Research a question through web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, err := cmd.Flags().GetInt("depth")
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetInt("timeout")
			intent := strings.Join(args, " ")
			return runSession(cmd, intent, func(ctx context.Context, o *websearch.Orchestrator) error {
				return o.Run(ctx, intent, depth, timeout)
			})
		},
	}
	cmd.Flags().IntP("depth", "d", websearch.DefaultDepth, "Search results crawled per query")
	return cmd
}

func NewBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <text with links>",
		Short: "Crawl the links contained in the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetInt("timeout")
			input := strings.Join(args, " ")
			return runSession(cmd, input, func(ctx context.Context, o *websearch.Orchestrator) error {
				return o.BrowseLinksFromInput(ctx, input, timeout)
			})
		},
	}
}

func runSession(cmd *cobra.Command, intent string, run func(context.Context, *websearch.Orchestrator) error) error {
	logging.InitLogger()
	defer logging.Sync()
	cfg := config.LoadConfig()
	if r, _ := cmd.Flags().GetString("renderer"); r != "" {
		cfg.Renderer = r
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeKind, _ := cmd.Flags().GetString("store")
	var (
		store  crawler.KnowledgeStore
		memory *crawler.MemoryStore
	)
	switch storeKind {
	case "memory":
		memory = crawler.NewMemoryStore()
		store = memory
	case "postgres":
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := psql.NewDatabase(dbCtx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		store = dao.NewWebKnowledgeDAO(db.DB)
	default:
		return fmt.Errorf("unknown store %q", storeKind)
	}

	agent, err := llm.New(cfg)
	if err != nil {
		return err
	}
	fetcher, closeFetcher, err := scraper.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()

	quiet, _ := cmd.Flags().GetBool("quiet")
	out := cmd.OutOrStdout()
	var observer func(types.CrawlEvent)
	if !quiet {
		observer = func(ev types.CrawlEvent) {
			fmt.Fprintln(out, color.FormatEvent(ev))
		}
	}

	factory := &websearch.Factory{Config: cfg, Agent: agent, Fetcher: fetcher, Store: store}
	session, err := factory.NewSession(observer)
	if err != nil {
		return err
	}
	logging.AppLogger.Info("cli session started", zap.String("session", session.ID), zap.String("intent", intent))
	fmt.Fprintln(out, color.ColorInfo("session "+session.ID))

	runErr := run(ctx, session)

	stats := session.Stats()
	fmt.Fprintf(out, "\nfetched %d, failed %d, skipped %d, stored %d\n",
		stats.Fetched, stats.Failed, stats.Skipped, stats.Stored)
	if memory != nil {
		printKnowledge(cmd, memory.All())
	}
	return runErr
}

func printKnowledge(cmd *cobra.Command, items []crawler.Knowledge) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, color.ColorWarning("no summaries collected"))
		return
	}
	for _, k := range items {
		fmt.Fprintf(out, "\n%s\n%s\n", color.ColorInfo(k.SourceURL), k.Content)
	}
}
