package fio

import (
	"fmt"
	"path"

	"github.com/Octogonapus/VMDiskBenchmark/benchmark"
	"github.com/Octogonapus/VMDiskBenchmark/util"
	"github.com/mitchellh/mapstructure"
)

type FioBenchmarkInput struct {
	Name       string
	ScriptPath string // remote path of the staged benchmark script
	TestName   string
	Size       string
	BlockSize  string
	MixPct     int
	IODepth    int
	RuntimeSec int

	// Append --run-pgbench so the script also runs the database benchmark.
	RunPgbench bool

	ResultsDir string // remote directory the script writes results_sheet_*.txt into
	TestFile   string // remote fio test file removed during cleanup
}

type bmark struct {
	input *FioBenchmarkInput
}

func init() {
	benchmark.RegisterBenchmark("fio", func(a map[string]any) (benchmark.Benchmark, error) {
		input := &FioBenchmarkInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to FioBenchmarkInput: %w", err)
		}
		return NewFioBenchmark(input), nil
	})
}

func NewFioBenchmark(input *FioBenchmarkInput) benchmark.Benchmark {
	if input.Name == "" {
		input.Name = "fio-" + util.Randstring(4)
	}
	return &bmark{input: input}
}

func (b *bmark) GetCommand() (string, error) {
	if b.input.ScriptPath == "" {
		return "", fmt.Errorf("fio benchmark requires the remote script path")
	}
	cmd := fmt.Sprintf("%s --test-name %s --size %s --bs %s --mix %d --io-depth %d --runtime %d",
		b.input.ScriptPath,
		b.input.TestName,
		b.input.Size,
		b.input.BlockSize,
		b.input.MixPct,
		b.input.IODepth,
		b.input.RuntimeSec,
	)
	if b.input.RunPgbench {
		cmd += " --run-pgbench"
	}
	return cmd, nil
}

func (b *bmark) GetCleanupCommand() string {
	return fmt.Sprintf("rm -rf %s && rm -f %s", b.input.ResultsDir, b.input.TestFile)
}

func (b *bmark) GetResultsDir() string {
	return b.input.ResultsDir
}

func (b *bmark) GetName() string {
	return b.input.Name
}

func (b *bmark) GetInput() map[string]any {
	return map[string]any{
		"TestName":   b.input.TestName,
		"Size":       b.input.Size,
		"BlockSize":  b.input.BlockSize,
		"MixPct":     b.input.MixPct,
		"IODepth":    b.input.IODepth,
		"RuntimeSec": b.input.RuntimeSec,
		"RunPgbench": b.input.RunPgbench,
	}
}

// The fio test file the benchmark script reads and writes. Removed during cleanup so a
// migrated VM never reuses a file laid out on the previous storage type.
func DefaultTestFile(remoteDir string) string {
	return path.Join(remoteDir, "fio_test_file")
}
