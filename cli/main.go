package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/archive"
	"github.com/Octogonapus/VMDiskBenchmark/benchmark"
	"github.com/Octogonapus/VMDiskBenchmark/benchmark/fio"
	_ "github.com/Octogonapus/VMDiskBenchmark/benchmark/pgbench"
	benchmarkorchestrator "github.com/Octogonapus/VMDiskBenchmark/benchmark_orchestrator"
	"github.com/Octogonapus/VMDiskBenchmark/runconfig"
	"github.com/Octogonapus/VMDiskBenchmark/util"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"golang.org/x/crypto/ssh"
)

func main() {
	runFile := flag.String("run-file", "", "A JSON file holding the run configuration. Skips the interactive prompts.")
	sshKey := flag.String("ssh-key", defaultKeyPath(), "The SSH private key used to reach the VMs.")
	sshPort := flag.Int("ssh-port", 22, "The SSH port of the VMs.")
	script := flag.String("script", "run_benchmark.sh", "The local benchmark script staged onto each VM.")
	remoteDir := flag.String("remote-dir", "benchmark", "The remote directory the script and its results live under. Relative paths are relative to the SSH user's home directory.")
	resultsRoot := flag.String("results", "results", "Run directories are created under this local directory.")
	timeout := flag.Duration("timeout", 30*time.Minute, "Kill a host's benchmark command after this long. 0 disables the timeout.")
	monitor := flag.Bool("monitor", false, "Sample each VM's /proc while its benchmark runs and include the measurements in the report.")
	minFioVersion := flag.String("min-fio-version", "3.1", "Warn when a VM's fio is older than this. Empty disables the probe.")
	concurrency := flag.Int("concurrency", 0, "How many VMs run concurrently within one iteration. All of them by default.")
	archiveBucket := flag.String("archive-bucket", "", "Upload the finished results tree into this S3 bucket. The bucket must already exist. No upload by default.")
	uploadConcurrency := flag.Int("upload-concurrency", 8, "The number of goroutines used to upload archived results.")
	verbose := flag.Bool("v", false, "Enable debug logging.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	keyBuf, err := os.ReadFile(*sshKey)
	if err != nil {
		fatal("failed to read SSH key", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBuf)
	if err != nil {
		fatal("failed to parse SSH key", err)
	}

	prompter := runconfig.NewPrompter(os.Stdin, os.Stdout)

	var cfg *runconfig.RunConfig
	if *runFile != "" {
		buf, err := os.ReadFile(*runFile)
		if err != nil {
			fatal("failed to read run file", err)
		}
		cfg, err = runconfig.LoadRunFile(buf)
		if err != nil {
			fatal("failed to load run file", err)
		}
	} else {
		cfg, err = prompter.Collect()
		if err != nil {
			fatal("configuration intake failed", err)
		}
	}

	if cfg.ScriptPath == "" {
		cfg.ScriptPath = *script
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = *remoteDir
	}
	if cfg.ResultsRoot == "" {
		cfg.ResultsRoot = *resultsRoot
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = *timeout
	}

	err = cfg.Validate()
	if err != nil {
		fatal("invalid configuration", err)
	}
	_, err = os.Stat(cfg.ScriptPath)
	if err != nil {
		fatal(fmt.Sprintf("benchmark script %s not found", cfg.ScriptPath), err)
	}

	fmt.Printf("\nStorage type: %s\nVMs:          %s\nIterations:   %d\nTest mode:    %s\n\n",
		cfg.StorageType, strings.Join(cfg.VMIPs, ", "), cfg.Iterations, cfg.Mode)
	ok, err := prompter.Confirm("Start the benchmark run?", true)
	if err != nil {
		fatal("confirmation failed", err)
	}
	if !ok {
		fmt.Println("Canceled.")
		return
	}

	var runDirs []string
	for {
		b, err := buildBenchmark(cfg)
		if err != nil {
			fatal("failed to build benchmark", err)
		}

		orch := benchmarkorchestrator.NewSSHBenchmarkOrchestrator(&benchmarkorchestrator.SSHBenchmarkOrchestratorInput{
			Auths:         []ssh.AuthMethod{ssh.PublicKeys(signer)},
			SSHPort:       *sshPort,
			Monitor:       *monitor,
			MinFioVersion: *minFioVersion,
			Concurrency:   *concurrency,
		})
		orch.SetBenchmark(b)

		err = orch.SetUp(cfg)
		if err != nil {
			fatal("failed to stage the benchmark", err)
		}

		rep, err := orch.RunIterations()
		if err != nil {
			fatal("benchmark run failed", err)
		}

		err = rep.Write(orch.RunDir())
		if err != nil {
			slog.Error("failed to write run report", slog.String("error", err.Error()))
		}
		runDirs = append(runDirs, orch.RunDir())
		slog.Info("run finished", slog.String("dir", orch.RunDir()))

		if *archiveBucket != "" {
			archiveResults(*archiveBucket, *uploadConcurrency, orch.RunDir())
		}

		again, err := prompter.Confirm("Migrate the VMs to the other storage type and run again?", false)
		if err != nil || !again {
			break
		}
		next, err := prompter.String("Storage type for the next pass (local/iscsi)", otherStorage(cfg.StorageType))
		if err != nil {
			fatal("configuration intake failed", err)
		}
		cfg.StorageType = strings.ToLower(next)
		err = cfg.Validate()
		if err != nil {
			fatal("invalid configuration", err)
		}
	}

	fmt.Println("\nPost-process the results with:")
	fmt.Printf("  python3 aggregate_results.py %s\n", strings.Join(runDirs, " "))
	fmt.Printf("  python3 visualize_results.py %s\n", strings.Join(runDirs, " "))
}

func buildBenchmark(cfg *runconfig.RunConfig) (benchmark.Benchmark, error) {
	resultsDir := benchmarkorchestrator.RemoteResultsDir(cfg)
	switch cfg.Mode {
	case runconfig.ModeFio, runconfig.ModeFioPgbench:
		return benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{
			Type: "fio",
			Input: map[string]any{
				"Name":       cfg.Mode.String(),
				"ScriptPath": benchmarkorchestrator.RemoteScriptPath(cfg),
				"TestName":   cfg.Fio.TestName,
				"Size":       cfg.Fio.Size,
				"BlockSize":  cfg.Fio.BlockSize,
				"MixPct":     cfg.Fio.MixPct,
				"IODepth":    cfg.Fio.IODepth,
				"RuntimeSec": cfg.Fio.RuntimeSec,
				"RunPgbench": cfg.Mode == runconfig.ModeFioPgbench,
				"ResultsDir": resultsDir,
				"TestFile":   fio.DefaultTestFile(cfg.RemoteDir),
			},
		})
	case runconfig.ModePgbench:
		return benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{
			Type: "pgbench",
			Input: map[string]any{
				"Name":       cfg.Mode.String(),
				"ResultsDir": resultsDir,
			},
		})
	default:
		return nil, fmt.Errorf("unknown test mode: %d", int(cfg.Mode))
	}
}

// Archive failures are logged but never abort: the results are already on local disk.
func archiveResults(bucket string, uploadConcurrency int, runDir string) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		slog.Error("failed to load AWS config, skipping archive", slog.String("error", err.Error()))
		return
	}

	a := archive.NewS3Archiver(&archive.S3ArchiverInput{
		AwsConfig:         awsCfg,
		Bucket:            bucket,
		Prefix:            fmt.Sprintf("%s-%s", path.Base(runDir), util.Randstring(6)),
		UploadConcurrency: uploadConcurrency,
	})
	err = a.SetUp()
	if err != nil {
		slog.Error("skipping archive", slog.String("error", err.Error()))
		return
	}
	err = a.UploadDir(runDir)
	if err != nil {
		slog.Error("archiving results failed", slog.String("error", err.Error()))
	}
}

func otherStorage(storage string) string {
	if storage == runconfig.StorageLocal {
		return runconfig.StorageISCSI
	}
	return runconfig.StorageLocal
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
