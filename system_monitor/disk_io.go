package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/report"
)

// Fields of one /proc/diskstats line we care about for a storage benchmark.
type diskstatEntry struct {
	deviceName       string
	readsCompleted   int
	sectorsRead      int
	timeSpentReading int
	writesCompleted  int
	sectorsWritten   int
	timeSpentWriting int
	iosInProgress    int
	timeSpentOnIos   int
	weightedIOTime   int
}

func parseDiskstats(buf []byte) []diskstatEntry {
	var entries []diskstatEntry
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 14 {
			continue
		}

		entry := diskstatEntry{deviceName: parts[2]}
		entry.readsCompleted, _ = strconv.Atoi(parts[3])
		entry.sectorsRead, _ = strconv.Atoi(parts[5])
		entry.timeSpentReading, _ = strconv.Atoi(parts[6])
		entry.writesCompleted, _ = strconv.Atoi(parts[7])
		entry.sectorsWritten, _ = strconv.Atoi(parts[9])
		entry.timeSpentWriting, _ = strconv.Atoi(parts[10])
		entry.iosInProgress, _ = strconv.Atoi(parts[11])
		entry.timeSpentOnIos, _ = strconv.Atoi(parts[12])
		entry.weightedIOTime, _ = strconv.Atoi(parts[13])
		entries = append(entries, entry)
	}
	return entries
}

func (mon *systemMonitor) appendDiskIOMetrics(now time.Time, buf []byte) {
	for _, entry := range parseDiskstats(buf) {
		dm := func(value int) report.DeviceMeasurement[int] {
			return report.DeviceMeasurement[int]{
				DeviceName:  entry.deviceName,
				Measurement: report.Measurement[int]{Time: now.Unix(), Value: value},
			}
		}

		// sectors are always 512 bytes in diskstats regardless of the device sector size
		mon.sm.DiskReads = append(mon.sm.DiskReads, dm(entry.readsCompleted))
		mon.sm.DiskReadBytes = append(mon.sm.DiskReadBytes, dm(entry.sectorsRead*512))
		mon.sm.DiskReadTimeMs = append(mon.sm.DiskReadTimeMs, dm(entry.timeSpentReading))
		mon.sm.DiskWrites = append(mon.sm.DiskWrites, dm(entry.writesCompleted))
		mon.sm.DiskWriteBytes = append(mon.sm.DiskWriteBytes, dm(entry.sectorsWritten*512))
		mon.sm.DiskWriteTimeMs = append(mon.sm.DiskWriteTimeMs, dm(entry.timeSpentWriting))
		mon.sm.DiskIOTimeMs = append(mon.sm.DiskIOTimeMs, dm(entry.timeSpentOnIos))
		mon.sm.DiskWeightedIOTimeMs = append(mon.sm.DiskWeightedIOTimeMs, dm(entry.weightedIOTime))
		mon.sm.DiskIopsInProgress = append(mon.sm.DiskIopsInProgress, dm(entry.iosInProgress))
	}
}
