package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/VMDiskBenchmark/report"
)

// Network counters matter here because the iscsi storage type moves all disk traffic
// over the network.
func (mon *systemMonitor) appendNetworkMetrics(now time.Time, buf []byte) {
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 17 {
			continue
		}

		iface := strings.TrimSuffix(parts[0], ":")
		recvBytes, _ := strconv.Atoi(parts[1])
		recvPackets, _ := strconv.Atoi(parts[2])
		sendBytes, _ := strconv.Atoi(parts[9])
		sendPackets, _ := strconv.Atoi(parts[10])

		dm := func(value int) report.DeviceMeasurement[int] {
			return report.DeviceMeasurement[int]{
				DeviceName:  iface,
				Measurement: report.Measurement[int]{Time: now.Unix(), Value: value},
			}
		}
		mon.sm.NetBytesSent = append(mon.sm.NetBytesSent, dm(sendBytes))
		mon.sm.NetBytesRecv = append(mon.sm.NetBytesRecv, dm(recvBytes))
		mon.sm.NetPacketsSent = append(mon.sm.NetPacketsSent, dm(sendPackets))
		mon.sm.NetPacketsRecv = append(mon.sm.NetPacketsRecv, dm(recvPackets))
	}
}
