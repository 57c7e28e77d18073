// Package pipeline provides the load → layout → export pipeline for forcegraph.
//
// This package implements the complete pipeline used by the CLI and the HTTP
// API. By centralizing this logic, both entry points share the same cache
// keys, defaults and validation.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a graph file or run a generator (random, grid)
//  2. Layout: Run the force-directed engine until it settles
//  3. Export: Produce text, JSON, DOT or SVG output
//
// Each stage can be run independently or as part of the complete pipeline.
// Layouts and exports are cached: a layout run is fully determined by the
// graph's extended text form and the physical constants.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "graph.txt",
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	g, err := runner.Load(ctx, opts)
//	res, err := runner.Layout(ctx, g, opts)
//	artifacts, err := runner.Export(ctx, g, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMaxIterations caps a layout run.
	DefaultMaxIterations = 10000

	// DefaultNodes is the node count of the random generator.
	DefaultNodes = 20

	// DefaultMaxEdges is the per-node edge limit of the random generator.
	DefaultMaxEdges = 3

	// DefaultColumns and DefaultRows size the grid generator.
	DefaultColumns = 5
	DefaultRows    = 5
)

// Generator names.
const (
	GeneratorRandom = "random"
	GeneratorGrid   = "grid"
)

// Format constants for output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidGenerators is the set of supported generators.
var ValidGenerators = map[string]bool{
	GeneratorRandom: true,
	GeneratorGrid:   true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options: exactly one of Input, Text or Generator.
	Input     string `json:"input,omitempty"`
	Text      string `json:"text,omitempty"`
	Generator string `json:"generator,omitempty"`
	Nodes     int    `json:"nodes,omitempty"`
	MaxEdges  int    `json:"max_edges,omitempty"`
	Columns   int    `json:"columns,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Seed      uint64 `json:"seed,omitempty"` // 0 draws a random seed

	// Layout options
	Layout        layout.Config `json:"layout"`
	MaxIterations int           `json:"max_iterations,omitempty"`
	Shuffle       bool          `json:"shuffle,omitempty"` // randomize positions before the run
	Refresh       bool          `json:"refresh,omitempty"` // bypass the layout cache

	// Export options
	Formats  []string      `json:"formats,omitempty"`
	Extended bool          `json:"extended,omitempty"` // text output includes radius and velocity
	Labels   bool          `json:"labels,omitempty"`   // DOT/SVG show node ids
	TTL      time.Duration `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger     `json:"-"`
	OnStep layout.StepFunc `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the loaded graph, holding its settled positions.
	Graph *graph.Graph

	// GraphHash is the content hash of the graph before layout.
	GraphHash string

	// LayoutHash is the content hash of the graph after layout.
	LayoutHash string

	// Layout summarizes the layout run (or the cached run).
	Layout layout.Result

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LoadTime   time.Duration
	LayoutTime time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	ExportHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: text, json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGenerator checks that a generator name is valid.
func ValidateGenerator(name string) error {
	if !ValidGenerators[name] {
		return fmt.Errorf("invalid generator: %q (must be one of: random, grid)", name)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the graph source and applies generator defaults.
func (o *Options) ValidateForLoad() error {
	sources := 0
	for _, set := range []bool{o.Input != "", o.Text != "", o.Generator != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return fmt.Errorf("input, text or generator is required")
	case sources > 1:
		return fmt.Errorf("input, text and generator are mutually exclusive")
	}

	if o.Generator != "" {
		if err := ValidateGenerator(o.Generator); err != nil {
			return err
		}
		if o.Nodes == 0 {
			o.Nodes = DefaultNodes
		}
		if o.MaxEdges == 0 {
			o.MaxEdges = DefaultMaxEdges
		}
		if o.Columns == 0 {
			o.Columns = DefaultColumns
		}
		if o.Rows == 0 {
			o.Rows = DefaultRows
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
// A zero Layout config is replaced by layout.DefaultConfig.
func (o *Options) SetLayoutDefaults() {
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", o.MaxIterations)
	}
	return o.Layout.Validate()
}

// SetExportDefaults sets default values for exporting.
func (o *Options) SetExportDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatText}
	}
	if o.TTL == 0 {
		o.TTL = cache.ArtifactTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForExport validates and sets defaults for exporting.
func (o *Options) ValidateForExport() error {
	o.SetExportDefaults()
	return ValidateFormats(o.Formats)
}

// Source names the graph source for logs and metrics.
func (o *Options) Source() string {
	switch {
	case o.Generator != "":
		return o.Generator
	case o.Text != "":
		return "text"
	default:
		return "file"
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		RestLength:    o.Layout.RestLength,
		Stiffness:     o.Layout.Stiffness,
		Epsilon:       o.Layout.Epsilon,
		Damping:       o.Layout.Damping,
		TimeStep:      o.Layout.TimeStep,
		Repulsion:     o.Layout.Repulsion,
		MinDistance:   o.Layout.MinDistance,
		MaxIterations: o.MaxIterations,
	}
}

// ArtifactKeyOpts returns cache key options for an export format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatText:
		opts.Extended = o.Extended
	case FormatDOT, FormatSVG:
		opts.Labels = o.Labels
	}
	return opts
}
