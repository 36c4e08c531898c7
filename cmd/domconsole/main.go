// CLAUDE:SUMMARY CLI entry point for domconsole: terminal logger, journal follower, web console server and stdio MCP server.
// Command domconsole renders values the way a browser console does.
//
// Usage:
//
//	domconsole 42 '"hi"' '[1,"a",null]'     # one record from JSON args
//	tail -f events.jsonl | domconsole       # one record per stdin line, blank line = break
//	domconsole -html < fragment.html        # log top-level elements of each line
//	domconsole -serve -config console.yaml  # web console + JSON API
//	domconsole -mcp                         # MCP tools over stdio
//	domconsole -follow -config console.yaml # print records other processes journal
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domconsole/config"
	"github.com/hazyhaar/domconsole/console"
	"github.com/hazyhaar/domconsole/journal"
	"github.com/hazyhaar/domconsole/record"
	"github.com/hazyhaar/domconsole/sink"
	"github.com/hazyhaar/domconsole/surface/dom"
	"github.com/hazyhaar/domconsole/surface/term"
	"github.com/hazyhaar/domconsole/webconsole"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to domconsole.yaml config file")
	serve := flag.Bool("serve", false, "serve the web console")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio")
	follow := flag.Bool("follow", false, "print records appended to the journal")
	htmlIn := flag.Bool("html", false, "treat input as HTML fragments")
	color := flag.Bool("color", false, "colorize terminal output")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			logger.Error("domconsole: load config", "error", err)
			os.Exit(1)
		}
	}
	cfg.Surface.Color = cfg.Surface.Color || *color
	cfg.Server.Addr = env("DOMCONSOLE_ADDR", cfg.Server.Addr)
	cfg.Journal.Path = env("DOMCONSOLE_JOURNAL", cfg.Journal.Path)

	var err error
	switch {
	case *mcpMode:
		err = runMCP(ctx, logger, cfg)
	case *serve:
		err = runServe(ctx, logger, cfg)
	case *follow:
		err = runFollow(ctx, logger, cfg, os.Stdout, time.Second)
	default:
		err = runTerm(ctx, logger, cfg, flag.Args(), os.Stdin, os.Stdout, *htmlIn)
	}
	if err != nil {
		logger.Error("domconsole: fatal", "error", err)
		os.Exit(1)
	}
}

// buildSinks wires the configured sinks and the journal behind one router.
func buildSinks(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*sink.Router, *journal.Journal, error) {
	router := sink.NewRouter(logger)
	if logger.Enabled(ctx, slog.LevelDebug) {
		router.Add(sink.NewCallback(func(ctx context.Context, rec record.Record) error {
			logger.DebugContext(ctx, "domconsole: record", "id", rec.ID, "seq", rec.Seq, "method", rec.Method, "text", rec.Text)
			return nil
		}))
	}
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			router.Add(sink.NewStdout(nil))
		case "webhook":
			router.Add(sink.NewWebhook(sc.URL,
				sink.WithWebhookRetries(sc.Retries),
				sink.WithWebhookLogger(logger),
			))
		}
	}

	if cfg.Journal.Path == "" {
		logger.Debug("domconsole: sinks ready", "sinks", router.Len())
		return router, nil, nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	if n, err := j.Prune(ctx, cfg.Journal.Retention); err != nil {
		logger.Warn("domconsole: prune journal", "error", err)
	} else if n > 0 {
		logger.Info("domconsole: pruned journal", "records", n)
	}
	router.Add(j)
	logger.Debug("domconsole: sinks ready", "sinks", router.Len(), "journal", cfg.Journal.Path)
	return router, j, nil
}

func newService(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*webconsole.Service, *sink.Router, error) {
	router, j, err := buildSinks(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	d := dom.New()
	c, err := console.New(d, d.Host(),
		console.WithLogger(logger),
		console.WithSink(router),
		console.WithInspectOptions(cfg.InspectOptions()...),
		console.WithContext(ctx),
	)
	if err != nil {
		router.Close()
		return nil, nil, err
	}
	opts := []webconsole.Option{
		webconsole.WithLogger(logger),
		webconsole.WithInspectOptions(cfg.InspectOptions()...),
	}
	if j != nil {
		opts = append(opts, webconsole.WithJournal(j))
	}
	return webconsole.New(c, d, opts...), router, nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	svc, router, err := newService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("domconsole: server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("domconsole: server stopped")
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	svc, router, err := newService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer router.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "domconsole", Version: version}, nil)
	svc.RegisterMCP(srv)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func runTerm(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string, in io.Reader, out io.Writer, htmlIn bool) error {
	router, _, err := buildSinks(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer router.Close()

	ts := term.New(out, term.WithColor(cfg.Surface.Color))
	c, err := console.New(ts, ts.Host(),
		console.WithLogger(logger),
		console.WithSink(router),
		console.WithInspectOptions(cfg.InspectOptions()...),
		console.WithContext(ctx),
	)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		values, err := parseInput(args, htmlIn)
		if err != nil {
			return err
		}
		return c.Log(values...)
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if err := c.Break(); err != nil {
				return err
			}
			continue
		}
		values, err := parseInput([]string{line}, htmlIn)
		if err != nil {
			logger.Warn("domconsole: skip line", "error", err)
			continue
		}
		if err := c.Log(values...); err != nil {
			return err
		}
	}
	return sc.Err()
}

// runFollow replays journal records written by other processes onto the
// terminal. Replayed records are not journaled again.
func runFollow(ctx context.Context, logger *slog.Logger, cfg *config.Config, out io.Writer, interval time.Duration) error {
	if cfg.Journal.Path == "" {
		return errors.New("follow: no journal path configured")
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	ts := term.New(out, term.WithColor(cfg.Surface.Color))
	c, err := console.New(ts, ts.Host(), console.WithLogger(logger), console.WithContext(ctx))
	if err != nil {
		return err
	}
	logger.Info("domconsole: following journal", "path", cfg.Journal.Path)
	err = j.Follow(ctx, interval, logger, func(rec record.Record) error {
		_, err := c.EmitNodes(ctx, rec.Method, rec.Values)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// parseInput turns each input into values: HTML fragments yield their
// top-level elements; anything that is not valid JSON is logged as a string.
func parseInput(inputs []string, htmlIn bool) ([]any, error) {
	var values []any
	for _, s := range inputs {
		if htmlIn {
			vs, err := webconsole.ParseFragment(s)
			if err != nil {
				return nil, err
			}
			values = append(values, vs...)
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		values = append(values, v)
	}
	return values, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
