package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/milk9111/tether/config"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/journal"
	"github.com/milk9111/tether/logging"
	"github.com/milk9111/tether/metrics"
	"github.com/milk9111/tether/permission"
	"github.com/milk9111/tether/prefabs"
	"github.com/milk9111/tether/sim"
)

func main() {
	configPath := flag.String("config", "", "config file (.yaml, .yml or .toml); TETHER_* env vars override it")
	scenarioName := flag.String("scenario", "courtyard", "scenario name in prefabs/scenarios (basename, .yaml optional)")
	policy := flag.String("policy", "", "tengo permission policy in prefabs/scripts; static grants only when empty")
	grants := flag.String("grants", "1=*", "static grants, e.g. \"1=tether.drag;2=tether.*\"")
	journalPath := flag.String("journal", "", "sqlite journal path; disabled when empty")
	metricsAddr := flag.String("metrics", ":9464", "address serving /metrics; disabled when empty")
	realtime := flag.Bool("realtime", false, "pace frames to the wall clock")
	watch := flag.Bool("watch", false, "reload config and policy files when they change")
	debug := flag.Bool("debug", false, "enable debug logging")
	jsonLogs := flag.Bool("json", false, "write JSON log lines")
	flag.Parse()

	logger := logging.Init(logging.Options{App: "tether-sim", Debug: *debug, JSON: *jsonLogs})

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.EnableDebugLogging && !*debug {
		logger = logging.SetDebug(logger, true)
		log.Logger = logger
	}

	scenario, err := prefabs.LoadScenario(*scenarioName)
	if err != nil {
		log.Fatal().Err(err).Msg("load scenario")
	}

	table, err := permission.ParseGrants(*grants)
	if err != nil {
		log.Fatal().Err(err).Msg("parse grants")
	}
	static := permission.NewStatic(table)
	perms := permission.NewSwap(static)
	if *policy != "" {
		p, err := loadPolicy(*policy, static)
		if err != nil {
			log.Fatal().Err(err).Msg("load policy")
		}
		perms.Set(p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var j coupling.Journal
	if *journalPath != "" {
		jr, err := journal.Open(*journalPath, journal.Options{OnDrop: metrics.JournalDropped, Logger: &logger})
		if err != nil {
			log.Fatal().Err(err).Msg("open journal")
		}
		defer func() {
			if err := jr.Close(); err != nil {
				log.Error().Err(err).Msg("close journal")
			}
		}()
		log.Info().Str("session", jr.Session()).Str("path", *journalPath).Msg("journal open")
		j = jr
	}

	updates := make(chan config.Settings, 1)
	if *watch {
		if *configPath != "" {
			stopWatch := watchConfig(ctx, *configPath, updates)
			defer stopWatch()
		}
		if *policy != "" {
			stopWatch := watchPolicy(ctx, *policy, static, perms)
			defer stopWatch()
		}
	}

	s, err := sim.New(cfg.Sanitize(), scenario, sim.Options{
		Permissions: perms,
		Recorder:    metrics.NewRecorder(),
		Journal:     j,
		Logger:      &logger,
		Updates:     updates,
		Observer:    metrics.ObserveSystem,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build sim")
	}
	defer s.Close()

	log.Info().
		Str("scenario", scenario.Name).
		Float64("duration", scenario.End()).
		Bool("realtime", *realtime).
		Msg("sim start")

	if err := s.Run(ctx, *realtime); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("sim run")
	}
	log.Info().
		Int("frames", s.Frames()).
		Dur("elapsed", s.Elapsed()).
		Int("active", len(s.Manager.Links())).
		Msg("sim done")
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

func loadPolicy(name string, grants permission.GrantSource) (*permission.Script, error) {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return nil, err
	}
	return permission.NewScript(src, grants, &log.Logger)
}

// watchConfig forwards reloaded settings to updates until ctx ends.
func watchConfig(ctx context.Context, path string, updates chan<- config.Settings) func() {
	w, err := config.NewWatcher(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("watch config")
		return func() {}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-w.Updates:
				if !ok {
					return
				}
				metrics.RecordConfigReload(true)
				select {
				case updates <- cfg.Sanitize():
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				metrics.RecordConfigReload(false)
				log.Warn().Err(err).Str("path", path).Msg("config reload failed")
			}
		}
	}()
	return func() { _ = w.Close() }
}

// watchPolicy recompiles the policy script on change and swaps it in. A
// script that fails to compile leaves the previous policy in place.
func watchPolicy(ctx context.Context, name string, grants permission.GrantSource, perms *permission.Swap) func() {
	dir := filepath.Join(prefabs.Root, "scripts")
	w, err := prefabs.NewWatcher(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("watch policy")
		return func() {}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-w.Events:
				if !ok {
					return
				}
				if c.Kind != prefabs.ScriptChanged || c.Removed || c.Name != strings.TrimSuffix(filepath.Base(name), ".tengo") {
					continue
				}
				p, err := loadPolicy(name, grants)
				if err != nil {
					log.Warn().Err(err).Str("policy", name).Msg("policy reload failed")
					continue
				}
				perms.Set(p)
				log.Info().Str("policy", name).Msg("policy reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("policy watch")
			}
		}
	}()
	return func() { _ = w.Close() }
}
