package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/scout"
	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/httpapi"
	"github.com/poiesic/scout/search"
	"github.com/poiesic/scout/storage/badger"
	"github.com/poiesic/scout/storage/postgres"
	"github.com/urfave/cli/v2"
)

const dateLayout = "2006-01-02"

func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}

func searchRequest(c *cli.Context) (core.SearchRequest, error) {
	from, err := parseDate("from", c.String("from"))
	if err != nil {
		return core.SearchRequest{}, err
	}
	to, err := parseDate("to", c.String("to"))
	if err != nil {
		return core.SearchRequest{}, err
	}
	return core.ValidateSearchRequest(core.SearchRequest{
		Term:     c.String("term"),
		Country:  c.String("country"),
		From:     from,
		To:       to,
		Industry: c.StringSlice("industry"),
	})
}

// buildConfig applies the command-line overrides to the default configuration.
func buildConfig(c *cli.Context) (search.Config, error) {
	cfg := search.DefaultConfig()
	cfg.Deadline = c.Duration("deadline")
	cfg.Expansion.MinResults = c.Int("min-results")
	cfg.Discovery.MaxVariants = c.Int("max-variants")
	if rate := c.Float64("rate"); rate > 0 {
		cfg.RateLimit.InitialRate = rate
		cfg.RateLimit.MaxRate = max(cfg.RateLimit.MaxRate, rate)
		cfg.RateLimit.MinRate = min(cfg.RateLimit.MinRate, rate)
	}
	if err := cfg.Validate(); err != nil {
		return search.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// aiConfig returns nil when no AI host is configured.
func aiConfig(c *cli.Context) (*ai.Config, error) {
	host := c.String("ai-host")
	if host == "" {
		return nil, nil
	}
	opts := []ai.ConfigOption{
		ai.WithHost(host),
		ai.WithClassifierModel(c.String("classifier-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	}
	if token := c.String("ai-token"); token != "" {
		opts = append(opts, ai.WithToken(token))
	}
	cfg := ai.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func openEngine(ctx context.Context, c *cli.Context) (*scout.Engine, error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, err
	}
	opts := []scout.EngineOption{
		scout.WithConfig(cfg),
		scout.WithSearchEndpoint(c.String("search-url")),
		scout.WithFeedTemplate(c.String("feed-template")),
	}
	if c.Bool("no-feed") {
		opts = append(opts, scout.WithoutFeed())
	}
	if pg := c.String("pg-url"); pg != "" {
		opts = append(opts, scout.WithPostgres(pg))
	}
	aiCfg, err := aiConfig(c)
	if err != nil {
		return nil, err
	}
	if aiCfg != nil {
		opts = append(opts, scout.WithAI(aiCfg))
	}

	engine, err := scout.Open(ctx, c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func discoverCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := searchRequest(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var monitor search.RunMonitor
	if c.Bool("verbose") {
		monitor = search.NewWriterMonitor(c.App.ErrWriter)
	}
	res, err := engine.DiscoverWithMonitor(ctx, req, monitor)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}
	printRun(c.App.Writer, res)
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	return httpapi.Serve(ctx, c.String("addr"), httpapi.NewRouter(engine), nil)
}

func openRuns(c *cli.Context) (*badger.RunRepository, func(), error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return badger.NewRunRepository(backend), func() { backend.Close() }, nil
}

func runID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("run id is required")
	}
	return id, nil
}

func runsListCommand(c *cli.Context) error {
	runs, closeDB, err := openRuns(c)
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := runs.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTERM\tCOUNTRY\tWINDOW\tACCEPTED\tDEGRADED")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s..%s\t%d\t%d\n",
			m.ID, m.StartedAt.Format(time.RFC3339), m.Request.Term, m.Request.Country,
			m.Request.From.Format(dateLayout), m.Request.To.Format(dateLayout),
			m.Accepted, len(m.Degraded))
	}
	return tw.Flush()
}

func runsShowCommand(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	runs, closeDB, err := openRuns(c)
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := runs.GetRun(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}
	printRun(c.App.Writer, res)
	return nil
}

func runsDeleteCommand(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	runs, closeDB, err := openRuns(c)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := runs.DeleteRun(c.Context, id); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "deleted run %s\n", id)
	return nil
}

func cachePurgeCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	if err := badger.NewCacheTier(backend).Purge(); err != nil {
		return err
	}
	if err := backend.CollectGarbage(); err != nil {
		return fmt.Errorf("failed to reclaim cache space: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "purged local cache")

	if pg := c.String("pg-url"); pg != "" {
		tier, err := postgres.NewCacheTier(c.Context, pg)
		if err != nil {
			return fmt.Errorf("failed to connect to shared cache: %w", err)
		}
		defer tier.Close()
		if err := tier.Purge(c.Context); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "purged shared cache")
	}
	return nil
}

// cachePruneCommand only touches the shared tier; badger expires local
// entries on its own.
func cachePruneCommand(c *cli.Context) error {
	tier, err := postgres.NewCacheTier(c.Context, c.String("pg-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to shared cache: %w", err)
	}
	defer tier.Close()

	n, err := tier.DeleteExpired(c.Context)
	if err != nil {
		return fmt.Errorf("failed to prune shared cache: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "pruned %d expired entries\n", n)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRun(w io.Writer, res *core.RunResult) {
	md := res.Metadata
	fmt.Fprintf(w, "Run %s: %d candidates (cache hit ratio %.2f, %d provider calls)\n",
		md.ID, len(res.Candidates), md.CacheHitRatio(), md.ProviderCalls)
	for i, c := range res.Candidates {
		when := "date unknown"
		if c.StartDate != nil {
			when = c.StartDate.Format(dateLayout)
		}
		where := strings.Trim(strings.Join([]string{c.City, c.Country}, ", "), ", ")
		fmt.Fprintf(w, "%2d. %s [%s] %s %s\n", i+1, c.Title, c.Window, when, where)
		fmt.Fprintf(w, "    %s\n", c.SourceURL)
		if len(c.Speakers) > 0 {
			names := make([]string, len(c.Speakers))
			for j, p := range c.Speakers {
				names[j] = p.Name
			}
			fmt.Fprintf(w, "    speakers: %s\n", strings.Join(names, ", "))
		}
	}
	for _, d := range md.Degraded {
		fmt.Fprintf(w, "degraded: %s\n", d)
	}
}
