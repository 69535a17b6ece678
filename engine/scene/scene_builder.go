package scene

import (
	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/config"
	"github.com/Carmen-Shannon/oxy-bake/engine/playback"
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bake/engine/scheduler"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithRenderer attaches a Renderer. Registered sets get GPU buffers and Update writes
// frame offsets to them. Without a Renderer the scene runs on the CPU only.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) SceneBuilderOption {
	return func(s *scene) {
		s.r = r
	}
}

// WithScheduler shares an existing scheduler instead of creating one.
//
// Parameters:
//   - sched: the scheduler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithScheduler(sched scheduler.Scheduler) SceneBuilderOption {
	return func(s *scene) {
		s.sched = sched
	}
}

// WithComputeWorkers sets the number of worker goroutines used by Update.
// Defaults to runtime.NumCPU()-1. Ignored when WithScheduler is given.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithGrain sets how many instances one parallel task advances.
//
// Parameters:
//   - n: instances per task (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGrain(n int) SceneBuilderOption {
	return func(s *scene) {
		s.grain = max(n, 1)
	}
}

// WithTimeScaleRange randomizes the time scale of spawned instances within 1 + [Min, Max].
//
// Parameters:
//   - r: the mutator range
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTimeScaleRange(r playback.TimeScaleRange) SceneBuilderOption {
	return func(s *scene) {
		s.timeScaleRange = r
	}
}

// WithSeed sets the seed of the time scale stream. Zero selects playback.DefaultSeed.
//
// Parameters:
//   - seed: the seed
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSeed(seed uint64) SceneBuilderOption {
	return func(s *scene) {
		s.seed = common.Coalesce(seed, playback.DefaultSeed)
	}
}

// WithPlaybackConfig applies the workers, time scale range and seed of a file configuration.
//
// Parameters:
//   - cfg: the playback section of the configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPlaybackConfig(cfg config.PlaybackConfig) SceneBuilderOption {
	return func(s *scene) {
		WithComputeWorkers(cfg.Workers)(s)
		WithTimeScaleRange(cfg.TimeScale)(s)
		WithSeed(cfg.Seed)(s)
	}
}

// WithVerbose logs set registration.
//
// Parameters:
//   - verbose: true to log
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithVerbose(verbose bool) SceneBuilderOption {
	return func(s *scene) {
		s.verbose = verbose
	}
}
