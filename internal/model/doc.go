// Package model defines the core data structures shared across the
// optimization pipeline: fetched resources, the resource graph, critical
// CSS sets, optimization actions, audit metrics, and the final
// before/after comparison report.
//
// All entities are created within a single pipeline run and never mutated
// across runs. A new run for the same site overwrites prior artifacts
// wholesale.
package model
