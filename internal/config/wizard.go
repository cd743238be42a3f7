package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// NewWizardWithIO creates a wizard reading prompts from r and writing to w
func NewWizardWithIO(r io.Reader, w io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(r),
		out:    w,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Wayfarer Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	// State store backend
	fmt.Fprintln(w.out, "State store options:")
	fmt.Fprintln(w.out, "  memory - In-process only, lost on restart (default)")
	fmt.Fprintln(w.out, "  sqlite - Single-file database under the data directory")
	fmt.Fprintln(w.out, "  redis  - Shared redis server")
	for {
		fmt.Fprint(w.out, "Store backend [memory]: ")
		backend, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if backend == "" {
			backend = "memory"
		}

		if err := validator.ValidateBackend(backend); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}

		cfg.Store.Backend = backend
		break
	}

	// Redis address when the redis backend is selected
	if cfg.Store.Backend == "redis" {
		for {
			fmt.Fprint(w.out, "Redis address [localhost:6379]: ")
			addr, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if addr == "" {
				addr = "localhost:6379"
			}

			if err := validator.ValidateAddress(addr); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}

			cfg.Store.Redis.Address = addr
			break
		}

		fmt.Fprint(w.out, "Redis password (press Enter for none): ")
		password, err := w.readLine()
		if err != nil {
			return nil, err
		}
		cfg.Store.Redis.Password = password
	}

	fmt.Fprintln(w.out)

	// Data directory
	fmt.Fprint(w.out, "Data directory (press Enter for ~/.wayfarer): ")
	dataDir, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	fmt.Fprintln(w.out)

	// Worker pool size
	fmt.Fprint(w.out, "Task workers [10]: ")
	workers, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if workers != "" {
		n, convErr := strconv.Atoi(workers)
		if convErr != nil || n < 1 {
			fmt.Fprintf(w.out, "Warning: invalid worker count %q, using default (10)\n", workers)
		} else {
			cfg.Executor.Workers = n
		}
	}

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	fmt.Fprint(w.out, "Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
