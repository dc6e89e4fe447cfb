package runconfig

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

type TestMode int

const (
	ModeFio        TestMode = 1 // fio only
	ModeFioPgbench TestMode = 2 // fio followed by pgbench
	ModePgbench    TestMode = 3 // pgbench only
)

func (m TestMode) String() string {
	switch m {
	case ModeFio:
		return "fio"
	case ModeFioPgbench:
		return "fio+pgbench"
	case ModePgbench:
		return "pgbench"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// The two storage targets VMs are migrated between. The operator performs the
// migration by hand between passes.
const (
	StorageLocal = "local"
	StorageISCSI = "iscsi"
)

type FioParams struct {
	TestName   string
	Size       string
	BlockSize  string
	MixPct     int
	IODepth    int
	RuntimeSec int
}

// All the configuration for one run, collected once at intake and validated before any
// network operation happens.
type RunConfig struct {
	StorageType string
	SSHUser     string
	VMIPs       []string
	Iterations  int
	Mode        TestMode
	Fio         FioParams

	// Path of the local benchmark script staged onto each host.
	ScriptPath string

	// Remote directory the script is staged into and results are produced under.
	// Relative paths are relative to the SSH user's home directory.
	RemoteDir string

	// Local directory run directories are created under.
	ResultsRoot string

	// How long one host's benchmark command may run before it is killed. Zero means no
	// timeout.
	CommandTimeout time.Duration
}

func (c *RunConfig) Validate() error {
	if c.StorageType != StorageLocal && c.StorageType != StorageISCSI {
		return fmt.Errorf("storage type must be %q or %q, got %q", StorageLocal, StorageISCSI, c.StorageType)
	}
	if c.SSHUser == "" {
		return fmt.Errorf("SSH user must not be empty")
	}
	if len(c.VMIPs) == 0 {
		return fmt.Errorf("at least one VM IP is required")
	}
	for _, ip := range c.VMIPs {
		if err := ValidateIP(ip); err != nil {
			return err
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iteration count must be a positive integer, got %d", c.Iterations)
	}
	if c.Mode < ModeFio || c.Mode > ModePgbench {
		return fmt.Errorf("test mode must be 1, 2, or 3, got %d", int(c.Mode))
	}
	if c.Mode != ModePgbench {
		if c.Fio.MixPct < 0 || c.Fio.MixPct > 100 {
			return fmt.Errorf("fio mix percentage must be within [0, 100], got %d", c.Fio.MixPct)
		}
		if c.Fio.IODepth < 1 {
			return fmt.Errorf("fio IO depth must be a positive integer, got %d", c.Fio.IODepth)
		}
		if c.Fio.RuntimeSec < 1 {
			return fmt.Errorf("fio runtime must be a positive integer, got %d", c.Fio.RuntimeSec)
		}
	}
	return nil
}

// The operator enters dotted-quad addresses, so reject everything that is not IPv4.
func ValidateIP(ip string) error {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return fmt.Errorf("invalid VM IP %q: must be a dotted-quad IPv4 address", ip)
	}
	return nil
}
