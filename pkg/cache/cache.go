// Package cache stores computed layouts and exported artifacts.
//
// A layout run is deterministic for a given graph and set of physical
// constants, so its result can be reused: the pipeline hashes the graph's
// extended text form, derives a key with a [Keyer] and stores the settled
// graph under it.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under the user cache directory (CLI)
//   - [RedisCache]: shared cache for the HTTP API
//   - [MongoCache]: shared cache with a TTL index
//
// All backends treat an expired or corrupt entry as a miss.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Default entry lifetimes.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases connections held by the backend.
	Close() error
}

// =============================================================================
// Keys
// =============================================================================

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// LayoutKey identifies a settled layout of the graph with the given hash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies an export of the layout with the given hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts lists every input that changes a layout result.
// Worker count and step delay are absent: they never change positions.
type LayoutKeyOpts struct {
	RestLength    float64 `json:"l0"`
	Stiffness     float64 `json:"c1"`
	Epsilon       float64 `json:"eps"`
	Damping       float64 `json:"damping"`
	TimeStep      float64 `json:"dt"`
	Repulsion     float64 `json:"k"`
	MinDistance   float64 `json:"min_d"`
	MaxIterations int     `json:"max_iter"`
}

// ArtifactKeyOpts lists every input that changes an exported artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Extended bool   `json:"extended,omitempty"`
	Labels   bool   `json:"labels,omitempty"`
}

// DefaultKeyer produces "layout:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the graph hash together with the layout options.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey hashes the layout hash together with the export options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// Open builds a cache for the named backend ("none", "file", "redis" or
// "mongo").
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", "none":
		return NewNullCache(), nil
	case "file":
		fc, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case "redis":
		rc, err := NewRedisCache(ctx, RedisConfig{Addr: opts.RedisAddr, DB: opts.RedisDB})
		if err != nil {
			return nil, err
		}
		return rc, nil
	case "mongo":
		mc, err := NewMongoCache(ctx, MongoConfig{
			URI:        opts.MongoURI,
			Database:   opts.MongoDatabase,
			Collection: opts.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		return mc, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Options selects a backend for [Open].
type Options struct {
	Backend         string
	Dir             string
	RedisAddr       string
	RedisDB         int
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}
