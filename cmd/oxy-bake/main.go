// Command oxy-bake bakes the animation clips of a skinned glTF model into a
// baked animation directory that oxy-play and the runtime can load.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-bake/engine/bake_cache"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/config"
	"github.com/Carmen-Shannon/oxy-bake/engine/loader"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		outDir     = flag.String("out", "", "output directory (default: <model>.baked)")
		fps        = flag.Float64("fps", 0, "sampling rate, overrides the config")
		verbose    = flag.Bool("verbose", false, "log every clip")
	)
	wrapModes := make(map[string]model.WrapMode)
	flag.Func("wrap", "clip wrap override as name=mode (repeatable)", func(s string) error {
		name, mode, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return fmt.Errorf("expected name=mode, got %q", s)
		}
		m, err := model.ParseWrapMode(mode)
		if err != nil {
			return err
		}
		wrapModes[name] = m
		return nil
	})
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: oxy-bake [flags] <model.gltf|model.glb>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("[oxy-bake] %v", err)
		}
	}
	if *fps > 0 {
		cfg.Bake.FrameRate = float32(*fps)
	}
	if *verbose {
		cfg.Bake.Verbose = true
	}
	overrides := make(map[string]model.WrapMode, len(cfg.Bake.WrapModes)+len(wrapModes))
	for name, mode := range cfg.Bake.WrapModes {
		overrides[name] = mode
	}
	for name, mode := range wrapModes {
		overrides[name] = mode
	}

	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithVerbose(cfg.Bake.Verbose))
	m, err := l.Load(path)
	if err != nil {
		log.Fatalf("[oxy-bake] failed to load %s: %v", path, err)
	}

	res, key, err := bake_cache.Shared().GetOrBake(bake_cache.Request{
		Name:      m.Name(),
		Skeleton:  m.Skeleton(),
		Clips:     m.Animations(),
		FrameRate: cfg.Bake.FrameRate,
		WrapModes: overrides,
	})
	if err != nil {
		log.Fatalf("[oxy-bake] failed to bake %s: %v", path, err)
	}
	for _, name := range res.Skipped {
		log.Printf("[oxy-bake] skipped clip %s: model has no bones", name)
	}

	dir := *outDir
	if dir == "" {
		dir = strings.TrimSuffix(path, filepath.Ext(path)) + ".baked"
	}
	if err := bakery.Save(dir, res.Set); err != nil {
		log.Fatalf("[oxy-bake] failed to save %s: %v", dir, err)
	}

	set := res.Set
	log.Printf("[oxy-bake] %s: %d clip(s), %d bone(s), %d frame(s), %d row(s) -> %s (key %s)",
		m.Name(), len(set.Clips), set.BoneCount, set.TotalFrames(), set.RowCount(), dir, key)
	if cfg.Bake.Verbose {
		for _, c := range set.Clips {
			log.Printf("[oxy-bake]   %-24s start %5d  frames %4d  %6.3fs  %s", c.Name, c.StartFrame, c.FrameCount, c.Duration, c.WrapMode)
		}
	}
}
