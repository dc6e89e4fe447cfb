package report

import (
	"encoding/json"
	"os"
	"path"
)

type Measurement[T any] struct {
	Time  int64
	Value T
}

type DeviceMeasurement[T any] struct {
	DeviceName  string
	Measurement Measurement[T]
}

// Samples collected from a host's /proc while its benchmark command runs.
type SystemMeasurements struct {
	CpuUsageUser   []Measurement[float64]
	CpuUsageSystem []Measurement[float64]
	CpuUsageIdle   []Measurement[float64]
	CpuUsageIowait []Measurement[float64]
	CpuUsageSteal  []Measurement[float64]

	MemUsedBytes  []Measurement[int]
	MemUsedPct    []Measurement[float64]
	MemAvailBytes []Measurement[int]
	MemAvailPct   []Measurement[float64]
	SwapUsedBytes []Measurement[int]
	SwapUsedPct   []Measurement[float64]

	DiskReads            []DeviceMeasurement[int]
	DiskReadBytes        []DeviceMeasurement[int]
	DiskReadTimeMs       []DeviceMeasurement[int]
	DiskWrites           []DeviceMeasurement[int]
	DiskWriteBytes       []DeviceMeasurement[int]
	DiskWriteTimeMs      []DeviceMeasurement[int]
	DiskIOTimeMs         []DeviceMeasurement[int]
	DiskWeightedIOTimeMs []DeviceMeasurement[int]
	DiskIopsInProgress   []DeviceMeasurement[int]

	NetBytesSent   []DeviceMeasurement[int]
	NetBytesRecv   []DeviceMeasurement[int]
	NetPacketsSent []DeviceMeasurement[int]
	NetPacketsRecv []DeviceMeasurement[int]
}

// The outcome of pulling a host's remote results directory back to the local tree.
type RetrievalStatus string

const (
	// The remote results directory existed, was non-empty, and was copied back.
	RetrievalSuccess RetrievalStatus = "success"

	// The remote results directory was empty or absent; no copy was attempted.
	RetrievalEmptySource RetrievalStatus = "empty-source"

	// The copy was attempted and failed.
	RetrievalTransportFailure RetrievalStatus = "transport-failure"
)

// The outcome of one host's benchmark command and result retrieval within one iteration.
type HostResult struct {
	Host       string
	Iteration  int
	RunError   string // non-empty iff the remote benchmark command failed or timed out
	RunTimeSec float64

	Retrieval   RetrievalStatus
	FilesCopied int

	LogPath     string
	ResultsPath string

	SystemMeasurements *SystemMeasurements `json:",omitempty"`
}

type IterationReport struct {
	Iteration int
	Hosts     []*HostResult
}

type RunReport struct {
	StorageType string
	VMCount     int
	Iterations  int
	Benchmark   string
	Command     string
	StartedAt   int64
	FinishedAt  int64

	IterationReports []*IterationReport
}

// Writes the report as report.json inside dir.
func (r *RunReport) Write(dir string) error {
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(dir, "report.json"), buf, os.ModePerm)
}
