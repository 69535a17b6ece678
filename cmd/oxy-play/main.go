// Command oxy-play loads a baked animation directory, spawns a crowd of instances
// and plays it back headless, either in an interactive inspector or as a plain tick loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-bake/engine"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/config"
	"github.com/Carmen-Shannon/oxy-bake/engine/scene"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		instances  = flag.Int("instances", 0, "instances to spawn, overrides the config")
		clip       = flag.String("clip", "", "clip to start with (default: first clip)")
		headless   = flag.Bool("headless", false, "run the tick loop without the inspector")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: oxy-play [flags] <baked dir>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("[oxy-play] %v", err)
		}
	}
	if *instances > 0 {
		cfg.Playback.Instances = *instances
	}

	set, err := bakery.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("[oxy-play] %v", err)
	}
	if len(set.Clips) == 0 {
		log.Fatalf("[oxy-play] %s holds no clips", flag.Arg(0))
	}

	startClip := 0
	if *clip != "" {
		if startClip = set.ClipIndex(*clip); startClip < 0 {
			log.Fatalf("[oxy-play] clip %q not found", *clip)
		}
	}

	s, err := scene.NewScene(set.ID.String(), scene.WithPlaybackConfig(cfg.Playback))
	if err != nil {
		log.Fatalf("[oxy-play] %v", err)
	}
	defer s.Release()
	if err := s.AddSet(set); err != nil {
		log.Fatalf("[oxy-play] %v", err)
	}
	if cfg.Playback.Instances > 0 {
		if _, err := s.SpawnMany(set.ID, uint32(startClip), cfg.Playback.Instances); err != nil {
			log.Fatalf("[oxy-play] %v", err)
		}
	}

	eng := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithScene(0, s),
		engine.WithProfiling(true),
	)

	if *headless {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			eng.Quit()
		}()
		log.Printf("[oxy-play] playing %d instance(s) of %s at %v per tick", s.Len(), set.ID, eng.TickRate())
		eng.Run()
		return
	}

	eng.Profiler().SetQuiet(true)
	p := tea.NewProgram(newInspector(eng, s, set, startClip), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("[oxy-play] %v", err)
	}
}
