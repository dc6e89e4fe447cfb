package fio

import (
	"testing"

	"github.com/Octogonapus/VMDiskBenchmark/benchmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCommand(t *testing.T) {
	b := NewFioBenchmark(&FioBenchmarkInput{
		Name:       "fio",
		ScriptPath: "benchmark/run_benchmark.sh",
		TestName:   "all",
		Size:       "1G",
		BlockSize:  "4k",
		MixPct:     70,
		IODepth:    32,
		RuntimeSec: 60,
		ResultsDir: "benchmark/results",
		TestFile:   "benchmark/fio_test_file",
	})

	cmd, err := b.GetCommand()
	require.NoError(t, err)
	assert.Equal(t, "benchmark/run_benchmark.sh --test-name all --size 1G --bs 4k --mix 70 --io-depth 32 --runtime 60", cmd)
}

func TestGetCommandWithPgbench(t *testing.T) {
	b := NewFioBenchmark(&FioBenchmarkInput{
		ScriptPath: "benchmark/run_benchmark.sh",
		TestName:   "all",
		Size:       "1G",
		BlockSize:  "4k",
		MixPct:     70,
		IODepth:    32,
		RuntimeSec: 60,
		RunPgbench: true,
	})

	cmd, err := b.GetCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd, " --run-pgbench")
}

func TestGetCommandRequiresScriptPath(t *testing.T) {
	b := NewFioBenchmark(&FioBenchmarkInput{TestName: "all"})
	_, err := b.GetCommand()
	assert.Error(t, err)
}

func TestGetCleanupCommand(t *testing.T) {
	b := NewFioBenchmark(&FioBenchmarkInput{
		ResultsDir: "benchmark/results",
		TestFile:   "benchmark/fio_test_file",
	})
	assert.Equal(t, "rm -rf benchmark/results && rm -f benchmark/fio_test_file", b.GetCleanupCommand())
}

func TestDeserialize(t *testing.T) {
	b, err := benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{
		Type: "fio",
		Input: map[string]any{
			"Name":       "myfio",
			"ScriptPath": "run_benchmark.sh",
			"TestName":   "seqread",
			"Size":       "2G",
			"BlockSize":  "64k",
			"MixPct":     50,
			"IODepth":    16,
			"RuntimeSec": 30,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "myfio", b.GetName())

	cmd, err := b.GetCommand()
	require.NoError(t, err)
	assert.Equal(t, "run_benchmark.sh --test-name seqread --size 2G --bs 64k --mix 50 --io-depth 16 --runtime 30", cmd)
}

func TestDefaultTestFile(t *testing.T) {
	assert.Equal(t, "benchmark/fio_test_file", DefaultTestFile("benchmark"))
}
