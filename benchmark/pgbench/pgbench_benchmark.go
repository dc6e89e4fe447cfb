package pgbench

import (
	"fmt"
	"path"

	"github.com/Octogonapus/VMDiskBenchmark/benchmark"
	"github.com/Octogonapus/VMDiskBenchmark/util"
	"github.com/mitchellh/mapstructure"
)

// Output of the database benchmark inside the remote results directory. The downstream
// aggregator globs for results_sheet_*.txt, so this name must keep that shape.
const OutputFile = "results_sheet_pgbench.txt"

type PgbenchBenchmarkInput struct {
	Name       string
	Scale      int
	Clients    int
	Jobs       int
	TimeSec    int
	Database   string
	ResultsDir string // remote directory the output file is written into
}

type bmark struct {
	input *PgbenchBenchmarkInput
}

func init() {
	benchmark.RegisterBenchmark("pgbench", func(a map[string]any) (benchmark.Benchmark, error) {
		input := &PgbenchBenchmarkInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to PgbenchBenchmarkInput: %w", err)
		}
		return NewPgbenchBenchmark(input), nil
	})
}

func NewPgbenchBenchmark(input *PgbenchBenchmarkInput) benchmark.Benchmark {
	if input.Name == "" {
		input.Name = "pgbench-" + util.Randstring(4)
	}
	if input.Scale == 0 {
		input.Scale = 50
	}
	if input.Clients == 0 {
		input.Clients = 10
	}
	if input.Jobs == 0 {
		input.Jobs = 2
	}
	if input.TimeSec == 0 {
		input.TimeSec = 60
	}
	if input.Database == "" {
		input.Database = "postgres"
	}
	return &bmark{input: input}
}

// Initialize-then-benchmark, with all output redirected into the results sheet.
func (b *bmark) GetCommand() (string, error) {
	if b.input.ResultsDir == "" {
		return "", fmt.Errorf("pgbench benchmark requires the remote results directory")
	}
	out := path.Join(b.input.ResultsDir, OutputFile)
	cmd := fmt.Sprintf("mkdir -p %s && sudo -u postgres pgbench -i -s %d %s && sudo -u postgres pgbench -c %d -j %d -T %d %s > %s 2>&1",
		b.input.ResultsDir,
		b.input.Scale,
		b.input.Database,
		b.input.Clients,
		b.input.Jobs,
		b.input.TimeSec,
		b.input.Database,
		out,
	)
	return cmd, nil
}

func (b *bmark) GetCleanupCommand() string {
	return fmt.Sprintf("rm -rf %s", b.input.ResultsDir)
}

func (b *bmark) GetResultsDir() string {
	return b.input.ResultsDir
}

func (b *bmark) GetName() string {
	return b.input.Name
}

func (b *bmark) GetInput() map[string]any {
	return map[string]any{
		"Scale":    b.input.Scale,
		"Clients":  b.input.Clients,
		"Jobs":     b.input.Jobs,
		"TimeSec":  b.input.TimeSec,
		"Database": b.input.Database,
	}
}
