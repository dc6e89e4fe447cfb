package benchmarkorchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/benchmark"
	"github.com/Octogonapus/VMDiskBenchmark/report"
	"github.com/Octogonapus/VMDiskBenchmark/runconfig"
	systemmonitor "github.com/Octogonapus/VMDiskBenchmark/system_monitor"
	"github.com/Octogonapus/VMDiskBenchmark/target"
	"github.com/Octogonapus/VMDiskBenchmark/util"
	"github.com/alitto/pond"
	goversion "github.com/hashicorp/go-version"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/crypto/ssh"
)

type sshBenchmarkOrchestrator struct {
	input   *SSHBenchmarkOrchestratorInput
	cfg     *runconfig.RunConfig
	b       benchmark.Benchmark
	targets []target.Target
	runDir  string
}

type SSHBenchmarkOrchestratorInput struct {
	Auths   []ssh.AuthMethod
	SSHPort int

	// Sample each host's /proc while its benchmark command runs and include the
	// measurements in the report.
	Monitor bool

	// Warn when a host's fio is older than this. Empty disables the probe.
	MinFioVersion string

	// How many hosts run concurrently within one iteration. 0 = all hosts at once.
	Concurrency int

	// Overridden in tests. nil constructs an SSHTarget.
	TargetFactory func(user, ip string) target.Target
}

func NewSSHBenchmarkOrchestrator(input *SSHBenchmarkOrchestratorInput) *sshBenchmarkOrchestrator {
	if input.TargetFactory == nil {
		input.TargetFactory = func(user, ip string) target.Target {
			return &target.SSHTarget{
				User:    user,
				IP:      ip,
				SSHPort: input.SSHPort,
				Auths:   input.Auths,
			}
		}
	}
	return &sshBenchmarkOrchestrator{input: input}
}

func (o *sshBenchmarkOrchestrator) SetBenchmark(b benchmark.Benchmark) {
	o.b = b
}

func (o *sshBenchmarkOrchestrator) RunDir() string {
	return o.runDir
}

// The remote path the benchmark script is staged at for a config.
func RemoteScriptPath(cfg *runconfig.RunConfig) string {
	return path.Join(cfg.RemoteDir, filepath.Base(cfg.ScriptPath))
}

// The remote directory the benchmark writes its results into for a config.
func RemoteResultsDir(cfg *runconfig.RunConfig) string {
	return path.Join(cfg.RemoteDir, "results")
}

func (o *sshBenchmarkOrchestrator) SetUp(cfg *runconfig.RunConfig) error {
	o.cfg = cfg

	o.targets = o.targets[:0]
	for _, ip := range cfg.VMIPs {
		o.targets = append(o.targets, o.input.TargetFactory(cfg.SSHUser, ip))
	}

	o.runDir = path.Join(cfg.ResultsRoot, fmt.Sprintf("%s_%s_%dvms_%diter",
		time.Now().Format("20060102_1504"), cfg.StorageType, len(cfg.VMIPs), cfg.Iterations))
	err := os.MkdirAll(o.runDir, os.ModePerm)
	if err != nil {
		return err
	}
	slog.Debug("created run directory", slog.String("dir", o.runDir))

	script, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return fmt.Errorf("failed to read benchmark script %s: %w", cfg.ScriptPath, err)
	}

	remoteScript := RemoteScriptPath(cfg)
	for _, t := range o.targets {
		err = t.CopyFileTo(bytes.NewReader(script), remoteScript)
		if err != nil {
			return fmt.Errorf("failed to stage benchmark script on %s: %w", t.Addr(), err)
		}
		out, err := t.RunCommand(fmt.Sprintf("chmod +x %s", remoteScript))
		if err != nil {
			return fmt.Errorf("failed to make benchmark script executable on %s: %s: %w", t.Addr(), string(out), err)
		}
		slog.Debug("staged benchmark script", slog.String("host", t.Addr()), slog.String("path", remoteScript))
	}

	if o.input.MinFioVersion != "" && cfg.Mode != runconfig.ModePgbench {
		o.probeFioVersions()
	}

	return nil
}

// Warns about hosts whose fio is older than the configured minimum. The warning is
// advisory: results from old fio versions have known reporting differences, but the run
// is the operator's call.
func (o *sshBenchmarkOrchestrator) probeFioVersions() {
	min, err := goversion.NewVersion(o.input.MinFioVersion)
	if err != nil {
		slog.Warn("invalid minimum fio version, skipping probe", slog.String("version", o.input.MinFioVersion))
		return
	}

	for _, t := range o.targets {
		out, err := t.RunCommand("fio --version")
		if err != nil {
			slog.Warn("failed to probe fio version", slog.String("host", t.Addr()), slog.String("error", err.Error()))
			continue
		}
		raw := strings.TrimPrefix(util.LastNonEmptyLine(out), "fio-")
		if raw == "" {
			slog.Warn("fio version probe produced no output", slog.String("host", t.Addr()))
			continue
		}
		v, err := goversion.NewVersion(raw)
		if err != nil {
			slog.Warn("failed to parse fio version", slog.String("host", t.Addr()), slog.String("output", raw))
			continue
		}
		if v.LessThan(min) {
			slog.Warn("host has an old fio version",
				slog.String("host", t.Addr()),
				slog.String("version", v.String()),
				slog.String("minimum", min.String()),
			)
		} else {
			slog.Debug("probed fio version", slog.String("host", t.Addr()), slog.String("version", v.String()))
		}
	}
}

func (o *sshBenchmarkOrchestrator) RunIterations() (*report.RunReport, error) {
	if o.b == nil {
		return nil, fmt.Errorf("no benchmark was set")
	}

	cmd, err := o.b.GetCommand()
	if err != nil {
		return nil, fmt.Errorf("getting benchmark command failed: %w", err)
	}
	slog.Debug("benchmark command", slog.String("name", o.b.GetName()), slog.String("command", cmd))

	rep := &report.RunReport{
		StorageType: o.cfg.StorageType,
		VMCount:     len(o.targets),
		Iterations:  o.cfg.Iterations,
		Benchmark:   o.b.GetName(),
		Command:     cmd,
		StartedAt:   time.Now().Unix(),
	}

	for k := 1; k <= o.cfg.Iterations; k++ {
		rep.IterationReports = append(rep.IterationReports, o.runIteration(k, cmd))
	}

	rep.FinishedAt = time.Now().Unix()
	return rep, nil
}

func (o *sshBenchmarkOrchestrator) runIteration(k int, cmd string) *report.IterationReport {
	slog.Info("starting iteration", slog.Int("iteration", k), slog.Int("hosts", len(o.targets)))

	// Remove leftovers from the previous iteration. A failed cleanup is not fatal; the
	// benchmark script overwrites its own artifacts anyway.
	cleanup := o.b.GetCleanupCommand()
	for _, t := range o.targets {
		out, err := t.RunCommand(cleanup)
		if err != nil {
			slog.Warn("remote cleanup failed",
				slog.String("host", t.Addr()),
				slog.String("output", string(out)),
				slog.String("error", err.Error()),
			)
		}
	}

	resultCh := make(chan *report.HostResult, len(o.targets))
	p := progressbar.Default(int64(len(o.targets)), fmt.Sprintf("iteration %d:", k))

	if o.input.Concurrency == 0 {
		wg := &sync.WaitGroup{}
		for _, t := range o.targets {
			t := t
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer p.Add(1)
				o.runHost(resultCh, k, cmd, t)
			}()
		}
		wg.Wait()
	} else {
		pool := pond.New(o.input.Concurrency, 0, pond.MinWorkers(o.input.Concurrency))
		for _, t := range o.targets {
			t := t
			pool.Submit(func() {
				defer p.Add(1)
				o.runHost(resultCh, k, cmd, t)
			})
		}
		pool.StopAndWait()
	}
	p.Finish()

	close(resultCh)
	ir := &report.IterationReport{Iteration: k}
	for hr := range resultCh {
		ir.Hosts = append(ir.Hosts, hr)
	}
	return ir
}

func (o *sshBenchmarkOrchestrator) runHost(resultCh chan *report.HostResult, k int, cmd string, t target.Target) {
	hr := &report.HostResult{
		Host:        t.Addr(),
		Iteration:   k,
		LogPath:     path.Join(o.runDir, fmt.Sprintf("iter%d_log_%s.log", k, t.Addr())),
		ResultsPath: path.Join(o.runDir, fmt.Sprintf("iter%d_results_%s", k, t.Addr())),
	}
	defer func() { resultCh <- hr }()

	// The local per-host results directory always exists, even when the host fails, so
	// downstream tooling sees a uniform tree.
	err := os.MkdirAll(hr.ResultsPath, os.ModePerm)
	if err != nil {
		hr.Retrieval = report.RetrievalTransportFailure
		hr.RunError = err.Error()
		return
	}

	var mon systemmonitor.SystemMonitor
	if o.input.Monitor {
		mon = systemmonitor.NewSystemMonitor(t)
		err := mon.StartMonitoring()
		if err != nil {
			slog.Warn("failed to start system monitor", slog.String("host", t.Addr()), slog.String("error", err.Error()))
			mon = nil
		}
	}

	ctx := context.Background()
	if o.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CommandTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.RunCommandContext(ctx, cmd)
	hr.RunTimeSec = time.Since(start).Seconds()
	if err != nil {
		slog.Error("running benchmark command failed",
			slog.String("host", t.Addr()),
			slog.Int("iteration", k),
			slog.String("error", err.Error()),
			slog.String("output", string(out)),
		)
		hr.RunError = err.Error()
	}

	if mon != nil {
		mon.StopMonitoring()
		mon.WaitUntilStopped()
		hr.SystemMeasurements = mon.GetSystemMeasurements()
	}

	// The log file is written even when the command failed or produced no output, so
	// every iteration leaves exactly one log per host.
	err = os.WriteFile(hr.LogPath, out, os.ModePerm)
	if err != nil {
		slog.Error("failed to write host log", slog.String("host", t.Addr()), slog.String("error", err.Error()))
	}

	o.retrieveResults(hr, k, t)
}

// Pulls the host's remote results directory into the local tree. Never fatal: the
// outcome lands in the host result and the scp log, and other hosts proceed unaffected.
func (o *sshBenchmarkOrchestrator) retrieveResults(hr *report.HostResult, k int, t target.Target) {
	scpLogPath := path.Join(o.runDir, fmt.Sprintf("iter%d_scp_%s.log", k, t.Addr()))
	scpLog, err := os.OpenFile(scpLogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, os.ModePerm)
	if err != nil {
		slog.Error("failed to open scp log", slog.String("host", t.Addr()), slog.String("error", err.Error()))
		hr.Retrieval = report.RetrievalTransportFailure
		return
	}
	defer scpLog.Close()
	logf := func(format string, args ...any) {
		fmt.Fprintf(scpLog, time.Now().Format(time.RFC3339)+" "+format+"\n", args...)
	}

	remoteDir := o.b.GetResultsDir()
	names, err := t.ListDir(remoteDir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Error("remote results directory is absent, skipping retrieval",
			slog.String("host", t.Addr()), slog.String("dir", remoteDir))
		logf("results directory %s is absent", remoteDir)
		hr.Retrieval = report.RetrievalEmptySource
		return
	} else if err != nil {
		slog.Error("failed to list remote results directory",
			slog.String("host", t.Addr()), slog.String("dir", remoteDir), slog.String("error", err.Error()))
		logf("listing %s failed: %s", remoteDir, err.Error())
		hr.Retrieval = report.RetrievalTransportFailure
		return
	}
	if len(names) == 0 {
		slog.Error("remote results directory is empty, skipping retrieval",
			slog.String("host", t.Addr()), slog.String("dir", remoteDir))
		logf("results directory %s is empty", remoteDir)
		hr.Retrieval = report.RetrievalEmptySource
		return
	}

	n, err := t.CopyDirFrom(remoteDir, hr.ResultsPath)
	hr.FilesCopied = n
	if err != nil {
		slog.Error("failed to copy remote results",
			slog.String("host", t.Addr()), slog.String("dir", remoteDir), slog.String("error", err.Error()))
		logf("copying %s failed after %d files: %s", remoteDir, n, err.Error())
		hr.Retrieval = report.RetrievalTransportFailure
		return
	}

	logf("copied %d files from %s to %s", n, remoteDir, hr.ResultsPath)
	slog.Debug("retrieved results", slog.String("host", t.Addr()), slog.Int("files", n))
	hr.Retrieval = report.RetrievalSuccess
}
