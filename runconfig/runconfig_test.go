package runconfig

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIP(t *testing.T) {
	assert.NoError(t, ValidateIP("10.0.0.1"))
	assert.NoError(t, ValidateIP(" 192.168.1.100 "))
	assert.Error(t, ValidateIP("10.0.0"))
	assert.Error(t, ValidateIP("10.0.0.256"))
	assert.Error(t, ValidateIP("not-an-ip"))
	assert.Error(t, ValidateIP("fe80::1"))
	assert.Error(t, ValidateIP(""))
}

func TestValidate(t *testing.T) {
	good := func() *RunConfig {
		return &RunConfig{
			StorageType: StorageLocal,
			SSHUser:     "user",
			VMIPs:       []string{"10.0.0.1", "10.0.0.2"},
			Iterations:  1,
			Mode:        ModeFio,
			Fio:         FioParams{TestName: "all", Size: "1G", BlockSize: "4k", MixPct: 70, IODepth: 32, RuntimeSec: 60},
		}
	}
	assert.NoError(t, good().Validate())

	cfg := good()
	cfg.StorageType = "nfs"
	assert.Error(t, cfg.Validate())

	cfg = good()
	cfg.VMIPs = nil
	assert.Error(t, cfg.Validate())

	cfg = good()
	cfg.VMIPs = []string{"10.0.0.1", "bogus"}
	assert.Error(t, cfg.Validate())

	cfg = good()
	cfg.Iterations = 0
	assert.Error(t, cfg.Validate())

	cfg = good()
	cfg.Mode = TestMode(4)
	assert.Error(t, cfg.Validate())

	cfg = good()
	cfg.Fio.MixPct = 101
	assert.Error(t, cfg.Validate())

	// fio parameters are not checked when only pgbench runs
	cfg = good()
	cfg.Mode = ModePgbench
	cfg.Fio = FioParams{}
	assert.NoError(t, cfg.Validate())
}

func TestPrompterDefaults(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompter(strings.NewReader("\n"), out)

	s, err := p.String("Storage type", "local")
	require.NoError(t, err)
	assert.Equal(t, "local", s)
	assert.Contains(t, out.String(), "[local]")

	p = NewPrompter(strings.NewReader("\n"), out)
	n, err := p.Int("Number of VMs", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrompterInvalidNumeric(t *testing.T) {
	p := NewPrompter(strings.NewReader("two\n"), &bytes.Buffer{})
	_, err := p.Int("Number of VMs", 1)
	assert.Error(t, err)
}

func TestPrompterConfirm(t *testing.T) {
	p := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{})
	ok, err := p.Confirm("Run?", false)
	require.NoError(t, err)
	assert.False(t, ok)

	p = NewPrompter(strings.NewReader("y\n"), &bytes.Buffer{})
	ok, err = p.Confirm("Run?", false)
	require.NoError(t, err)
	assert.True(t, ok)

	p = NewPrompter(strings.NewReader("no\n"), &bytes.Buffer{})
	ok, err = p.Confirm("Run?", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollectFioDefaults(t *testing.T) {
	// storage, count, two IPs, user, iterations, mode, then all fio defaults
	input := "\n2\n10.0.0.1\n10.0.0.2\n\n1\n1\n\n\n\n\n\n\n"
	p := NewPrompter(strings.NewReader(input), &bytes.Buffer{})

	cfg, err := p.Collect()
	require.NoError(t, err)
	assert.Equal(t, StorageLocal, cfg.StorageType)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.VMIPs)
	assert.Equal(t, "user", cfg.SSHUser)
	assert.Equal(t, 1, cfg.Iterations)
	assert.Equal(t, ModeFio, cfg.Mode)
	assert.Equal(t, FioParams{TestName: "all", Size: "1G", BlockSize: "4k", MixPct: 70, IODepth: 32, RuntimeSec: 60}, cfg.Fio)
}

func TestCollectPgbenchOnlySkipsFioPrompts(t *testing.T) {
	input := "iscsi\n1\n10.0.0.5\npostgres\n2\n3\n"
	p := NewPrompter(strings.NewReader(input), &bytes.Buffer{})

	cfg, err := p.Collect()
	require.NoError(t, err)
	assert.Equal(t, StorageISCSI, cfg.StorageType)
	assert.Equal(t, ModePgbench, cfg.Mode)
	assert.Equal(t, 2, cfg.Iterations)
	assert.Equal(t, FioParams{}, cfg.Fio)
}

func TestCollectRejectsBadIP(t *testing.T) {
	input := "\n1\n300.1.1.1\n"
	p := NewPrompter(strings.NewReader(input), &bytes.Buffer{})
	_, err := p.Collect()
	assert.Error(t, err)
}

func TestCollectRejectsNonPositiveVMCount(t *testing.T) {
	input := "\n0\n"
	p := NewPrompter(strings.NewReader(input), &bytes.Buffer{})
	_, err := p.Collect()
	assert.Error(t, err)
}

func TestLoadRunFile(t *testing.T) {
	buf := []byte(`{
		"StorageType": "local",
		"SSHUser": "user",
		"VMIPs": ["10.0.0.1"],
		"Iterations": 2,
		"Mode": 1,
		"Fio": {"TestName": "all", "Size": "1G", "BlockSize": "4k", "MixPct": 70, "IODepth": 32, "RuntimeSec": 60},
		"CommandTimeoutSec": 900
	}`)
	cfg, err := LoadRunFile(buf)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Iterations)
	assert.Equal(t, 15*time.Minute, cfg.CommandTimeout)
	assert.Equal(t, "4k", cfg.Fio.BlockSize)
}

func TestLoadRunFileRejectsGarbage(t *testing.T) {
	_, err := LoadRunFile([]byte("not json"))
	assert.Error(t, err)
}
