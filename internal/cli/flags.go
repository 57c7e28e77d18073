package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// layoutFlags holds the engine flags shared by layout, export and watch.
// Only flags set on the command line override the config file.
type layoutFlags struct {
	cfg           layout.Config
	maxIterations int
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	d := layout.DefaultConfig()
	fs := cmd.Flags()
	fs.IntVarP(&f.maxIterations, "max-iterations", "n", pipeline.DefaultMaxIterations, "step limit of the run")
	fs.Float64Var(&f.cfg.RestLength, "rest-length", d.RestLength, "edge length at which springs are relaxed")
	fs.Float64Var(&f.cfg.Stiffness, "stiffness", d.Stiffness, "spring force scale")
	fs.Float64Var(&f.cfg.Repulsion, "repulsion", d.Repulsion, "pairwise repulsion scale")
	fs.Float64Var(&f.cfg.Damping, "damping", d.Damping, "velocity damping per step (0,1]")
	fs.Float64Var(&f.cfg.TimeStep, "time-step", d.TimeStep, "integration interval")
	fs.Float64Var(&f.cfg.Epsilon, "epsilon", d.Epsilon, "kinetic energy below which the run has converged")
	fs.Float64Var(&f.cfg.MinDistance, "min-distance", d.MinDistance, "distance floor of the repulsion law")
	fs.IntVar(&f.cfg.Workers, "workers", 0, "goroutines per step (0: GOMAXPROCS)")
	fs.DurationVar(&f.cfg.StepDelay, "step-delay", 0, "pause between steps")
}

// apply copies the flags the user set into opts.
func (f *layoutFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	changed := cmd.Flags().Changed
	if changed("max-iterations") {
		opts.MaxIterations = f.maxIterations
	}
	if changed("rest-length") {
		opts.Layout.RestLength = f.cfg.RestLength
	}
	if changed("stiffness") {
		opts.Layout.Stiffness = f.cfg.Stiffness
	}
	if changed("repulsion") {
		opts.Layout.Repulsion = f.cfg.Repulsion
	}
	if changed("damping") {
		opts.Layout.Damping = f.cfg.Damping
	}
	if changed("time-step") {
		opts.Layout.TimeStep = f.cfg.TimeStep
	}
	if changed("epsilon") {
		opts.Layout.Epsilon = f.cfg.Epsilon
	}
	if changed("min-distance") {
		opts.Layout.MinDistance = f.cfg.MinDistance
	}
	if changed("workers") {
		opts.Layout.Workers = f.cfg.Workers
	}
	if changed("step-delay") {
		opts.Layout.StepDelay = f.cfg.StepDelay
	}
}
