package runconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sequential interactive prompting over stdin/stdout. Every prompt shows a literal
// default that is used on empty input. Invalid numeric input is an error, not a
// re-prompt: the run aborts before any network operation.
type Prompter struct {
	r *bufio.Reader
	w io.Writer
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{r: bufio.NewReader(r), w: w}
}

func (p *Prompter) String(label, def string) (string, error) {
	fmt.Fprintf(p.w, "%s [%s]: ", label, def)
	line, err := p.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *Prompter) Int(label string, def int) (int, error) {
	s, err := p.String(label, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric input %q for %s", s, label)
	}
	return n, nil
}

func (p *Prompter) Confirm(label string, def bool) (bool, error) {
	defStr := "y/N"
	if def {
		defStr = "Y/n"
	}
	fmt.Fprintf(p.w, "%s [%s]: ", label, defStr)
	line, err := p.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Runs the full interactive intake sequence and returns the collected configuration.
// The returned config still has to pass Validate; prompting only enforces what it can
// check locally (numeric syntax, IP syntax).
func (p *Prompter) Collect() (*RunConfig, error) {
	cfg := &RunConfig{}

	storage, err := p.String("Storage type (local/iscsi)", StorageLocal)
	if err != nil {
		return nil, err
	}
	cfg.StorageType = strings.ToLower(storage)

	nvms, err := p.Int("Number of VMs", 1)
	if err != nil {
		return nil, err
	}
	if nvms < 1 {
		return nil, fmt.Errorf("VM count must be a positive integer, got %d", nvms)
	}

	for i := 0; i < nvms; i++ {
		ip, err := p.String(fmt.Sprintf("IP of VM %d", i+1), "")
		if err != nil {
			return nil, err
		}
		if err := ValidateIP(ip); err != nil {
			return nil, err
		}
		cfg.VMIPs = append(cfg.VMIPs, strings.TrimSpace(ip))
	}

	cfg.SSHUser, err = p.String("SSH user", "user")
	if err != nil {
		return nil, err
	}

	cfg.Iterations, err = p.Int("Number of iterations", 1)
	if err != nil {
		return nil, err
	}
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("iteration count must be a positive integer, got %d", cfg.Iterations)
	}

	mode, err := p.Int("Test mode (1=fio, 2=fio+pgbench, 3=pgbench only)", 1)
	if err != nil {
		return nil, err
	}
	cfg.Mode = TestMode(mode)

	if cfg.Mode != ModePgbench {
		cfg.Fio, err = p.collectFioParams()
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (p *Prompter) collectFioParams() (FioParams, error) {
	params := FioParams{}
	var err error

	params.TestName, err = p.String("fio test name", "all")
	if err != nil {
		return params, err
	}
	params.Size, err = p.String("fio file size", "1G")
	if err != nil {
		return params, err
	}
	params.BlockSize, err = p.String("fio block size", "4k")
	if err != nil {
		return params, err
	}
	params.MixPct, err = p.Int("fio read percentage for mixed workloads", 70)
	if err != nil {
		return params, err
	}
	params.IODepth, err = p.Int("fio IO depth", 32)
	if err != nil {
		return params, err
	}
	params.RuntimeSec, err = p.Int("fio runtime in seconds", 60)
	if err != nil {
		return params, err
	}
	return params, nil
}
