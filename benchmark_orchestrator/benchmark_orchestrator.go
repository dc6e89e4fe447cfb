package benchmarkorchestrator

import (
	"github.com/Octogonapus/VMDiskBenchmark/report"
	"github.com/Octogonapus/VMDiskBenchmark/runconfig"
)

// Runs one benchmark across a set of machines (e.g. a fleet of VMs reachable over SSH).
type BenchmarkOrchestrator interface {
	// Set up the environment: create the local run directory and stage the benchmark
	// script onto every host. A staging failure aborts the whole run.
	SetUp(*runconfig.RunConfig) error

	// Run all iterations (hosts concurrently within each iteration) and return a report.
	RunIterations() (*report.RunReport, error)

	// The local directory this run's artifacts are collected into. Valid after SetUp.
	RunDir() string
}
