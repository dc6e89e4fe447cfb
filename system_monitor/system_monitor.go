package systemmonitor

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/report"
	"github.com/Octogonapus/VMDiskBenchmark/target"
	"golang.org/x/crypto/ssh"
)

// Samples a host's /proc over SSH while its benchmark command runs. Everything it needs
// is readable without installing anything on the host.
type SystemMonitor interface {
	StartMonitoring() error
	StopMonitoring()
	WaitUntilStopped()
	GetSystemMeasurements() *report.SystemMeasurements
}

type systemMonitor struct {
	target target.Target
	stop   *atomic.Bool
	wg     *sync.WaitGroup
	sm     *report.SystemMeasurements
}

func NewSystemMonitor(target target.Target) SystemMonitor {
	return &systemMonitor{
		target: target,
		stop:   &atomic.Bool{},
		wg:     &sync.WaitGroup{},
		sm:     &report.SystemMeasurements{},
	}
}

func (mon *systemMonitor) StartMonitoring() error {
	client, err := mon.target.Client()
	if err != nil {
		return err
	}

	mon.wg.Add(1)
	go mon.runMonitor(client)
	return nil
}

func (mon *systemMonitor) StopMonitoring() {
	mon.stop.Store(true)
}

func (mon *systemMonitor) WaitUntilStopped() {
	mon.wg.Wait()
}

func (mon *systemMonitor) GetSystemMeasurements() *report.SystemMeasurements {
	return mon.sm
}

var loopTime = 1 * time.Second

func (mon *systemMonitor) runMonitor(client *ssh.Client) {
	defer mon.wg.Done()
	defer client.Close()

	var prevCPU *cpuTimeStat
	for {
		if mon.stop.Load() {
			break // we deferred wg.Done
		}

		buf := mon.runCommand(client, "cat /proc/stat")
		t := time.Now()
		currCPU := parseCPUTimeStat(buf)
		if prevCPU != nil && currCPU != nil {
			mon.appendCPUMetrics(t, currCPU, prevCPU)
		}
		prevCPU = currCPU

		buf = mon.runCommand(client, "cat /proc/diskstats")
		mon.appendDiskIOMetrics(time.Now(), buf)

		buf = mon.runCommand(client, "cat /proc/meminfo")
		mon.appendMemoryMetrics(time.Now(), buf)

		buf = mon.runCommand(client, "cat /proc/net/dev")
		mon.appendNetworkMetrics(time.Now(), buf)

		time.Sleep(loopTime)
	}
	slog.Debug("SystemMonitor: stopped", slog.String("host", mon.target.Addr()))
}

func (mon *systemMonitor) runCommand(client *ssh.Client, cmd string) []byte {
	session, err := client.NewSession()
	if err == io.EOF {
		slog.Error("SystemMonitor: client got EOF when creating session, stopping monitor because connection is dead",
			slog.String("host", mon.target.Addr()), slog.String("error", err.Error()))
		mon.StopMonitoring()
		return nil
	} else if err != nil {
		slog.Warn("SystemMonitor: failed to create session", slog.String("host", mon.target.Addr()), slog.String("error", err.Error()))
		return nil
	}
	defer session.Close()

	buf, err := session.CombinedOutput(cmd)
	if err != nil {
		slog.Warn("SystemMonitor: failed to run command", slog.String("command", cmd), slog.String("output", string(buf)))
		return nil
	}
	return buf
}
