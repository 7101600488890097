// Command flowrun builds dataflow graphs from description files, pushes a
// recorded stream of frames through them and stores every frame outcome and
// sink value in a sqlite result database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/fliplane/internal/config"
	"github.com/banshee-data/fliplane/internal/flow"
	"github.com/banshee-data/fliplane/internal/flow/bridge"
	"github.com/banshee-data/fliplane/internal/resultstore"
	"github.com/banshee-data/fliplane/internal/version"
)

// Config holds the command line settings. Empty strings fall back to the
// engine config file.
type Config struct {
	ConfigPath  string
	Graphs      []string
	Combine     bool
	Samples     string
	DB          string
	OverlayDir  string
	Report      string
	ShowVersion bool
}

// graphList collects repeated -graph flags.
type graphList []string

func (g *graphList) String() string { return strings.Join(*g, ",") }

func (g *graphList) Set(v string) error {
	*g = append(*g, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("flowrun", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var graphs graphList
	fs.StringVar(&cfg.ConfigPath, "config", config.DefaultConfigPath, "Engine config JSON file")
	fs.Var(&graphs, "graph", "Graph description (.json, .yaml); repeat to run several graphs")
	fs.BoolVar(&cfg.Combine, "combine", false, "Fuse all graphs into one by matching bridge pairs")
	fs.StringVar(&cfg.Samples, "samples", "", "Frame samples as JSON lines")
	fs.StringVar(&cfg.DB, "db", "", "Result database (overrides result_db)")
	fs.StringVar(&cfg.OverlayDir, "overlay", "", "Directory for per-frame overlay PNGs (overrides overlay_dir)")
	fs.StringVar(&cfg.Report, "report", "", "HTML report file (overrides report_file)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Graphs = graphs
	if cfg.ShowVersion {
		return cfg, nil
	}
	if len(cfg.Graphs) == 0 {
		return cfg, fmt.Errorf("at least one -graph is required")
	}
	if cfg.Samples == "" {
		return cfg, fmt.Errorf("-samples is required")
	}
	return cfg, nil
}

// applyEngineConfig fills unset command line outputs from the engine config.
func (c *Config) applyEngineConfig(e *config.EngineConfig) {
	if c.DB == "" {
		c.DB = e.GetResultDB()
	}
	if c.OverlayDir == "" {
		c.OverlayDir = e.GetOverlayDir()
	}
	if c.Report == "" {
		c.Report = e.GetReportFile()
	}
}

// setupLogging routes the ops stream of every package to w and enables the
// diag and trace streams according to level.
func setupLogging(level string, w io.Writer) {
	var diag, trace io.Writer
	switch level {
	case "trace":
		diag, trace = w, w
	case "diag":
		diag = w
	}
	flow.SetLogWriters(w, diag, trace)
	bridge.SetLogWriters(w, diag, trace)
	resultstore.SetLogWriters(w, diag, trace)
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatalf("flowrun: %v", err)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	engine, err := config.LoadOrDefault(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.applyEngineConfig(engine)
	setupLogging(engine.GetLogLevel(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summaries, err := run(ctx, cfg, engine)
	if err != nil {
		log.Fatalf("flowrun: %v", err)
	}
	for _, s := range summaries {
		log.Printf("graph %q (%s): %d frames, %d failed", s.Name, s.GraphID, s.Frames, s.Failed)
		if !engine.GetTimingEnabled() {
			continue
		}
		for _, st := range s.Stats {
			log.Printf("  %-24s calls=%d mean=%s min=%s@%d max=%s@%d evicted=%d",
				st.Name, st.Calls, st.Mean(), st.Min, st.MinCounter, st.Max, st.MaxCounter, st.Evicted)
		}
	}
}
