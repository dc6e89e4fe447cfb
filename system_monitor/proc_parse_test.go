package systemmonitor

import (
	"testing"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStat = `cpu  74608 2520 24433 1117073 6176 0 5546 100 0 0
cpu0 17977 551 6130 279260 1625 0 2020 30 0 0
intr 5000000 100 9
ctxt 23456789
`

const procDiskstats = ` 259       0 nvme0n1 49663 4988
 259       0 nvme0n1 49663 4988 4510584 12345 132476 22986 6299000 52000 0 41000 64500 0 0 0 0 0 0
   8       0 sda 1043 231 74222 509 42 7 512 36 0 420 545 0 0 0 0 0 0 0
`

const procMeminfo = `MemTotal:        8000000 kB
MemFree:         2000000 kB
MemAvailable:    4000000 kB
Buffers:          500000 kB
Cached:          1000000 kB
SReclaimable:     100000 kB
SwapCached:            0 kB
SwapTotal:       1000000 kB
SwapFree:        1000000 kB
`

const procNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:  266633     400    0    0    0     0          0         0   266633     400    0    0    0     0       0          0
  eth0: 4510584   49663    0    0    0     0          0         0  6299000  132476    0    0    0     0       0          0
`

func TestParseCPUTimeStat(t *testing.T) {
	ts := parseCPUTimeStat([]byte(procStat))
	require.NotNil(t, ts)
	assert.Equal(t, 74608, ts.user)
	assert.Equal(t, 24433, ts.system)
	assert.Equal(t, 1117073, ts.idle)
	assert.Equal(t, 6176, ts.iowait)
	assert.Equal(t, 100, ts.steal)
}

func TestParseCPUTimeStatNoAggregateLine(t *testing.T) {
	assert.Nil(t, parseCPUTimeStat([]byte("cpu0 1 2 3 4 5 6 7 8 0 0\n")))
	assert.Nil(t, parseCPUTimeStat(nil))
}

func TestAppendCPUMetrics(t *testing.T) {
	mon := &systemMonitor{sm: &report.SystemMeasurements{}}
	prev := &cpuTimeStat{user: 100, system: 100, idle: 700, iowait: 100}
	curr := &cpuTimeStat{user: 150, system: 120, idle: 900, iowait: 130}
	mon.appendCPUMetrics(time.Now(), curr, prev)

	require.Len(t, mon.sm.CpuUsageUser, 1)
	// total delta is 300
	assert.InDelta(t, 100*50.0/300, mon.sm.CpuUsageUser[0].Value, 1e-9)
	assert.InDelta(t, 100*30.0/300, mon.sm.CpuUsageIowait[0].Value, 1e-9)
}

func TestParseDiskstats(t *testing.T) {
	entries := parseDiskstats([]byte(procDiskstats))
	require.Len(t, entries, 2)

	sda := entries[1]
	assert.Equal(t, "sda", sda.deviceName)
	assert.Equal(t, 1043, sda.readsCompleted)
	assert.Equal(t, 74222, sda.sectorsRead)
	assert.Equal(t, 42, sda.writesCompleted)
	assert.Equal(t, 512, sda.sectorsWritten)
	assert.Equal(t, 420, sda.timeSpentOnIos)
}

func TestAppendDiskIOMetrics(t *testing.T) {
	mon := &systemMonitor{sm: &report.SystemMeasurements{}}
	mon.appendDiskIOMetrics(time.Now(), []byte(procDiskstats))

	require.Len(t, mon.sm.DiskWriteBytes, 2)
	assert.Equal(t, "sda", mon.sm.DiskWriteBytes[1].DeviceName)
	assert.Equal(t, 512*512, mon.sm.DiskWriteBytes[1].Measurement.Value)
	assert.Len(t, mon.sm.DiskIopsInProgress, 2)
}

func TestAppendMemoryMetrics(t *testing.T) {
	mon := &systemMonitor{sm: &report.SystemMeasurements{}}
	mon.appendMemoryMetrics(time.Now(), []byte(procMeminfo))

	require.Len(t, mon.sm.MemUsedBytes, 1)
	// used = total - free - buffers - (cached + sreclaimable)
	wantUsed := (8000000 - 2000000 - 500000 - 1100000) * 1024
	assert.Equal(t, wantUsed, mon.sm.MemUsedBytes[0].Value)
	assert.InDelta(t, 50.0, mon.sm.MemAvailPct[0].Value, 1e-9)
	assert.Equal(t, 0, mon.sm.SwapUsedBytes[0].Value)
}

func TestAppendMemoryMetricsIgnoresGarbage(t *testing.T) {
	mon := &systemMonitor{sm: &report.SystemMeasurements{}}
	mon.appendMemoryMetrics(time.Now(), nil)
	assert.Empty(t, mon.sm.MemUsedBytes)
}

func TestAppendNetworkMetrics(t *testing.T) {
	mon := &systemMonitor{sm: &report.SystemMeasurements{}}
	mon.appendNetworkMetrics(time.Now(), []byte(procNetDev))

	require.Len(t, mon.sm.NetBytesRecv, 2)
	assert.Equal(t, "eth0", mon.sm.NetBytesRecv[1].DeviceName)
	assert.Equal(t, 4510584, mon.sm.NetBytesRecv[1].Measurement.Value)
	assert.Equal(t, 6299000, mon.sm.NetBytesSent[1].Measurement.Value)
	assert.Equal(t, 132476, mon.sm.NetPacketsSent[1].Measurement.Value)
}
