// Package config is the engine-wide ambient configuration layer, loaded
// from a YAML file. No other package of this module reads an Options
// value: query, collection, sqlgraph and logging run on their own
// built-in settings, so the fields below record a configuration without
// changing how a query runs.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options is the engine-wide configuration a Registry/Driver pairing is
// constructed with.
type Options struct {
	// CollectionStrategy is the default collection strategy preference
	// ("cte", "temptable", "lateral", or "" for the engine's own
	// default) applied to any query that doesn't set its own via
	// plan.QueryOptions.
	CollectionStrategy string `yaml:"collection_strategy"`

	// LogQueries records whether statements are to be audited; query
	// execution does not call the audit hook either way.
	LogQueries bool `yaml:"log_queries"`
	// LogParameters additionally includes bound parameter values in
	// logged events; off by default since they may carry sensitive data.
	LogParameters bool `yaml:"log_parameters"`
	// SlowQueryThreshold is the duration past which a query is logged
	// at Warn instead of Debug.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`

	// MaxConcurrentCollectionBuilds is a ceiling in the form
	// collection.BuildAllLimited takes (0 means unbounded); query
	// resolves collections through collection.BuildAll, which is always
	// unbounded.
	MaxConcurrentCollectionBuilds int `yaml:"max_concurrent_collection_builds"`

	// BulkInsertParameterCeiling is a parameter ceiling for callers
	// running against a pooler that reserves some parameter slots of its
	// own; sqlgraph's insert chunking always uses the constant
	// sqlgraph.MaxBulkParameters.
	BulkInsertParameterCeiling int `yaml:"bulk_insert_parameter_ceiling"`
}

// Default returns the engine's built-in defaults.
func Default() Options {
	return Options{
		CollectionStrategy: "",
		LogQueries:         false,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// LoadYAML reads Options from a YAML file at path, starting from
// Default() so an omitted key keeps its default value rather than
// zeroing out.
func LoadYAML(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}
