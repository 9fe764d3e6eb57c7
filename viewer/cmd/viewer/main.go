package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirpwall/chirpwall/pkg/boardclient"
	"github.com/chirpwall/chirpwall/pkg/reconcile"
	"github.com/chirpwall/chirpwall/pkg/wire"
	"github.com/chirpwall/chirpwall/viewer/internal/config"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code.
func run() int {
	configPath := flag.String("config", "viewer.yaml", "path to config file")
	post := flag.String("post", "", "post a message with this content and exit")
	author := flag.String("author", "", "author of the message given with -post")
	list := flag.Bool("list", false, "print every message once and exit")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadOrDefault(*configPath, explicit)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}
	level.Set(cfg.Viewer.Level())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *post != "":
		return runPost(ctx, cfg.Viewer.HTTPURL, *post, *author)
	case *list:
		return runList(ctx, cfg.Viewer.HTTPURL)
	}

	slog.Info("chirpwall-viewer starting", "server_url", cfg.Viewer.ServerURL)

	r := reconcile.New(reconcile.Options{
		URL:      cfg.Viewer.ServerURL,
		Delay:    cfg.Viewer.ReconnectDelay,
		MaxDelay: cfg.Viewer.MaxReconnectDelay,
		OnChange: func(msgs []wire.Message) {
			printView(os.Stdout, msgs)
		},
		OnState: func(s reconcile.State) {
			slog.Info("connection state", "state", s.String())
		},
	})
	r.Run(ctx)
	slog.Info("chirpwall-viewer shutting down")
	return 0
}

func runPost(ctx context.Context, url, content, author string) int {
	m, err := boardclient.New(url).CreateMessage(ctx, content, author)
	if err != nil {
		fmt.Fprintln(os.Stderr, "post:", err)
		return 1
	}
	fmt.Printf("posted #%s at %s\n", m.ID, m.CreatedAt.Format(time.RFC3339))
	return 0
}

func runList(ctx context.Context, url string) int {
	msgs, err := boardclient.New(url).ListMessages(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		return 1
	}
	for _, m := range msgs {
		printMessage(os.Stdout, m)
	}
	return 0
}

// printView redraws the whole view, newest first.
func printView(w io.Writer, msgs []wire.Message) {
	fmt.Fprint(w, "\033[H\033[2J")
	fmt.Fprintf(w, "chirpwall (%d messages)\n\n", len(msgs))
	for _, m := range msgs {
		printMessage(w, m)
	}
}

func printMessage(w io.Writer, m wire.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.Author, m.Content)
}
