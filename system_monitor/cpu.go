package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/report"
)

type cpuTimeStat struct {
	user    int
	nice    int
	system  int
	idle    int
	iowait  int
	irq     int
	softIrq int
	steal   int
}

func (ts *cpuTimeStat) totalCPUTime() int {
	return ts.user + ts.nice + ts.system + ts.idle + ts.iowait + ts.irq + ts.softIrq + ts.steal
}

func parseCPUTimeStat(buf []byte) *cpuTimeStat {
	for _, line := range strings.Split(string(buf), "\n") {
		// Only the aggregate line; per-core metrics are not interesting here
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 9 {
			return nil
		}
		user, _ := strconv.Atoi(parts[1])
		nice, _ := strconv.Atoi(parts[2])
		system, _ := strconv.Atoi(parts[3])
		idle, _ := strconv.Atoi(parts[4])
		iowait, _ := strconv.Atoi(parts[5])
		irq, _ := strconv.Atoi(parts[6])
		softIrq, _ := strconv.Atoi(parts[7])
		steal, _ := strconv.Atoi(parts[8])
		return &cpuTimeStat{
			user:    user,
			nice:    nice,
			system:  system,
			idle:    idle,
			iowait:  iowait,
			irq:     irq,
			softIrq: softIrq,
			steal:   steal,
		}
	}
	return nil
}

func (mon *systemMonitor) appendCPUMetrics(now time.Time, curr *cpuTimeStat, prev *cpuTimeStat) {
	delta := float64(curr.totalCPUTime() - prev.totalCPUTime())
	if delta <= 0 {
		return
	}
	pct := func(c, p int) report.Measurement[float64] {
		return report.Measurement[float64]{Time: now.Unix(), Value: float64(100*(c-p)) / delta}
	}
	mon.sm.CpuUsageUser = append(mon.sm.CpuUsageUser, pct(curr.user, prev.user))
	mon.sm.CpuUsageSystem = append(mon.sm.CpuUsageSystem, pct(curr.system, prev.system))
	mon.sm.CpuUsageIdle = append(mon.sm.CpuUsageIdle, pct(curr.idle, prev.idle))
	mon.sm.CpuUsageIowait = append(mon.sm.CpuUsageIowait, pct(curr.iowait, prev.iowait))
	mon.sm.CpuUsageSteal = append(mon.sm.CpuUsageSteal, pct(curr.steal, prev.steal))
}
