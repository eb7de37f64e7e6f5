package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/clipboard"
	"dot-hub/internal/config"
	"dot-hub/internal/export"
	"dot-hub/internal/jobs"
	"dot-hub/internal/logging"
	"dot-hub/internal/metrics"
	"dot-hub/internal/render"
	"dot-hub/internal/schedule"
	"dot-hub/internal/session"
	"dot-hub/internal/ui"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Getenv, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dot-hub:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout io.Writer) error {
	cfg, err := config.Parse(args, getenv)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Path: cfg.Log.Path})
	if err != nil {
		return err
	}
	defer closer.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr, reg, log.With().Str("component", "metrics").Logger())
		if err != nil {
			return err
		}
		go srv.Serve()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("metrics shutdown")
			}
		}()
	}

	store, err := jobs.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := jobs.NewCache()
	loader := jobs.NewLoader(cfg.APIURL, nil, cache, store, m, log.With().Str("component", "jobs").Logger())

	sess := session.New(assistant.Identity{
		Name:        cfg.User.Name,
		AccessLevel: cfg.User.AccessLevel,
		Client:      cfg.User.Client,
	})
	client := assistant.NewClient(sess.Store, assistant.Options{
		HubURL:   cfg.HubURL,
		ClearURL: cfg.ClearURL,
		Timeout:  cfg.RequestTimeout,
		Metrics:  m,
		Log:      log.With().Str("component", "assistant").Logger(),
	})
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Info().
		Str("hub_url", cfg.HubURL).
		Str("user", sess.Identity().SenderName()).
		Str("db_path", cfg.DBPath).
		Msg("dot-hub starting")

	if strings.TrimSpace(cfg.Ask) != "" {
		return ask(ctx, cfg, sess, client, cache, loader, m, log, rng, stdout)
	}

	exp, err := export.New(cfg.ExportDir)
	if err != nil {
		return err
	}
	model := ui.NewModel(ui.Deps{
		Config:   cfg,
		Session:  sess,
		Sender:   client,
		Cache:    cache,
		Jobs:     loader,
		Search:   store,
		Exporter: exp,
		Copier:   clipboard.System{},
		Metrics:  m,
		Log:      log.With().Str("component", "ui").Logger(),
		Rand:     rng,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

// ask runs a single turn without the dashboard and prints the reply.
func ask(
	ctx context.Context,
	cfg config.AppConfig,
	sess *session.Session,
	client *assistant.Client,
	cache *jobs.Cache,
	loader *jobs.Loader,
	m *metrics.Metrics,
	log zerolog.Logger,
	rng *rand.Rand,
	stdout io.Writer,
) error {
	if _, err := loader.Warm(ctx); err != nil {
		log.Warn().Err(err).Msg("warm job cache")
	}
	if cfg.APIURL != "" {
		if _, err := loader.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("refresh job cache")
		}
	}

	p := session.Assemble(session.Options{
		Session:   sess,
		Sender:    client,
		Cache:     cache,
		Scheduler: &schedule.Manual{},
		Metrics:   m,
		Log:       log,
		Rand:      rng,
	})
	resp, err := p.Ask(ctx, cfg.Ask)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	return printResponse(stdout, resp, 80, time.Now())
}

func printResponse(w io.Writer, resp *render.Response, width int, now time.Time) error {
	var b strings.Builder
	body := render.Markdown(resp.Blocks)
	if strings.TrimSpace(body) != "" {
		out := render.Plain(resp.Blocks)
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(config.DefaultGlamourStyle),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			if s, renderErr := r.Render(body); renderErr == nil {
				out = strings.Trim(s, "\n")
			}
		}
		b.WriteString(out + "\n")
	}
	for _, c := range resp.Cards {
		c.Toggle()
		b.WriteString(c.View(width, now, false) + "\n")
	}
	if nav := resp.Navigation; nav != nil && nav.Target != "" {
		line := "Opening " + nav.Target
		if nav.Client != "" {
			line += " for " + nav.Client
		}
		b.WriteString(line + "\n")
	}
	if resp.Suggestion != nil {
		b.WriteString("Next: " + resp.Suggestion.Text + "\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
