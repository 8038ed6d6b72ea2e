package main

import (
	"flag"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"

	"github.com/milk9111/tether/config"
	"github.com/milk9111/tether/logging"
	"github.com/milk9111/tether/permission"
	"github.com/milk9111/tether/prefabs"
	"github.com/milk9111/tether/sim"
)

func main() {
	configPath := flag.String("config", "", "config file (.yaml, .yml or .toml)")
	scenarioName := flag.String("scenario", "courtyard", "scenario name in prefabs/scenarios (basename, .yaml optional)")
	grants := flag.String("grants", "1=*;2=*;3=*;4=*", "static grants, e.g. \"1=tether.drag\"")
	scripted := flag.Bool("scripted", false, "play the scenario timeline instead of only keyboard input")
	debug := flag.Bool("debug", false, "enable debug logging")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	logger := logging.Init(logging.Options{App: "tether-viewer", Debug: *debug})

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	scenario, err := prefabs.LoadScenario(*scenarioName)
	if err != nil {
		log.Fatal().Err(err).Msg("load scenario")
	}
	if !*scripted {
		scenario.Steps = nil
	}
	table, err := permission.ParseGrants(*grants)
	if err != nil {
		log.Fatal().Err(err).Msg("parse grants")
	}

	s, err := sim.New(cfg.Sanitize(), scenario, sim.Options{
		Frame:       sim.DefaultFrame,
		Permissions: permission.NewStatic(table),
		Logger:      &logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build sim")
	}
	defer s.Close()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("tether: " + scenario.Name)

	if err := ebiten.RunGame(NewGame(s)); err != nil {
		log.Fatal().Err(err).Msg("run viewer")
	}
}
