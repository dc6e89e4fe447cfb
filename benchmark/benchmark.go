package benchmark

import (
	"fmt"
)

// A benchmark builds the command strings run on every host. The same command string is
// shared by all hosts within an iteration; the orchestrator handles staging, launch,
// and retrieval.
type Benchmark interface {
	// Return the command that runs one iteration of the benchmark on a host.
	GetCommand() (string, error)

	// Return the command that removes artifacts left on a host by a previous iteration
	// (the remote results directory and the fio test file).
	GetCleanupCommand() string

	// The remote directory results are produced under, relative to the SSH user's home
	// directory unless absolute.
	GetResultsDir() string

	// A human-friendly name the user can set for this benchmark. Only used for debugging/printing.
	GetName() string

	// Any input given to this benchmark by the user. Included in the run report. Not used for anything else.
	GetInput() map[string]any
}

type benchmarkType string

type benchmarkFactory func(map[string]any) (Benchmark, error)

var benchmarks map[benchmarkType]benchmarkFactory

// All benchmarks must register themselves at module load time so that deserialization can create a benchmark of that type.
func RegisterBenchmark(btype string, f benchmarkFactory) {
	if benchmarks == nil {
		benchmarks = map[benchmarkType]benchmarkFactory{}
	}
	benchmarks[benchmarkType(btype)] = f
}

type SerializedBenchmark struct {
	Type  benchmarkType
	Input map[string]any
}

func DeserializeBenchmark(sb *SerializedBenchmark) (Benchmark, error) {
	found := false
	for b := range benchmarks {
		if sb.Type == b {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown benchmark type: %s", sb.Type)
	}

	return benchmarks[sb.Type](sb.Input)
}
