// Command analyze runs one device export through the analysis pipeline and
// prints the resulting analysis as JSON.
//
//	analyze -file export.csv [-device dexcom] [-patient p1] [-rules rules.yaml]
//
// Use -file - to read the export from stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/trutrend/internal/config"
	"github.com/JonMunkholm/trutrend/internal/core"
	_ "github.com/JonMunkholm/trutrend/internal/core/layouts" // Register device layouts
	"github.com/JonMunkholm/trutrend/internal/logging"
	"github.com/JonMunkholm/trutrend/internal/rules"
	"github.com/JonMunkholm/trutrend/internal/service"
	"github.com/JonMunkholm/trutrend/internal/store"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailed    = 1
	exitBadUsage  = 2
	exitNoFinding = 3
)

type cliConfig struct {
	File       string
	Device     string
	PatientID  string
	RulesFile  string
	LogLevel   string
	LogFormat  string
	Compact    bool
	FailOnNone bool
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{}
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.File, "file", "", "Path to the device export, or - for stdin")
	fs.StringVar(&cfg.Device, "device", getEnv("ANALYZE_DEVICE", ""), "Device type hint; empty detects the layout (env: ANALYZE_DEVICE)")
	fs.StringVar(&cfg.PatientID, "patient", getEnv("ANALYZE_PATIENT", "local"), "Patient id recorded in the analysis (env: ANALYZE_PATIENT)")
	fs.StringVar(&cfg.RulesFile, "rules", getEnv("RULES_FILE", ""), "YAML file overriding rule thresholds (env: RULES_FILE)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text, json (env: LOG_FORMAT)")
	fs.BoolVar(&cfg.Compact, "compact", false, "Print JSON on one line")
	fs.BoolVar(&cfg.FailOnNone, "fail-on-none", false, "Exit with status 3 when no finding is produced")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return nil, errors.New("-file is required")
	}
	return cfg, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "analyze:", err)
		}
		return exitBadUsage
	}

	logging.SetupWriter(stderr, cfg.LogLevel, cfg.LogFormat)

	data, name, err := readInput(cfg.File, stdin)
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitFailed
	}

	ruleCfg := rules.DefaultConfig()
	if cfg.RulesFile != "" {
		if ruleCfg, err = config.LoadRulesFile(cfg.RulesFile, ruleCfg); err != nil {
			fmt.Fprintln(stderr, "analyze:", err)
			return exitBadUsage
		}
	}

	hint := core.ParseDeviceType(cfg.Device)
	if cfg.Device != "" && !strings.EqualFold(cfg.Device, "auto") && hint == core.DeviceUnknown {
		fmt.Fprintf(stderr, "analyze: unknown device type %q\n", cfg.Device)
		return exitBadUsage
	}

	opts := service.DefaultOptions()
	opts.MaxConcurrent = 1
	opts.MaxFileSize = 0
	opts.Rules = ruleCfg

	svc, err := service.New(store.NewMemoryStore(), nil, opts)
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitBadUsage
	}

	a, err := svc.Analyze(context.Background(), service.Request{
		PatientID: cfg.PatientID,
		FileName:  name,
		Hint:      hint,
		Data:      data,
	})
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", core.FormatUserError(err))
		if ie, ok := core.AsIngestionError(err); ok && ie.Report != nil {
			_ = encode(stdout, ie.Report, cfg.Compact)
		}
		return exitFailed
	}

	if err := encode(stdout, a, cfg.Compact); err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitFailed
	}

	if cfg.FailOnNone && len(a.Findings) == 0 {
		return exitNoFinding
	}
	return exitOK
}

func readInput(path string, stdin io.Reader) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return data, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(path), nil
}

func encode(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
