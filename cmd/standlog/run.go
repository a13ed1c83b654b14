package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vlhsmylv/standlog-script/pkg/config"
	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/signal"
	"github.com/vlhsmylv/standlog-script/pkg/tracker"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a signal stream through the pipeline",
	Long: `Replay newline-delimited JSON signals through the full pipeline and
print funnel and persona summaries when the stream ends.

Examples:
  # Replay a recorded session against a live collector
  standlog run -c standlog.yaml -i session.jsonl

  # Analyze a stream offline, without a collector
  standlog run -c standlog.yaml -i session.jsonl --offline

  # Pipe signals from another process
  cat signals.jsonl | standlog run -c standlog.yaml`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Configuration file (YAML)")
	runCmd.Flags().StringP("input", "i", "", "Signal file to replay (default: stdin)")
	runCmd.Flags().String("collector", "", "Collector endpoint (overrides config)")
	runCmd.Flags().Bool("offline", false, "Discard batches instead of sending them")

	rootCmd.AddCommand(runCmd)
}

// discardTransport satisfies the delivery contract without a network. Used
// by --offline so funnel and persona analysis can run against a recording.
type discardTransport struct{}

func (discardTransport) CreateSession(_ context.Context, req types.SessionRequest) (*types.SessionResponse, error) {
	return &types.SessionResponse{ID: "session_offline", AnonymousID: req.AnonymousID, Success: true}, nil
}

func (discardTransport) SendEvents(_ context.Context, req types.EventsRequest) (*types.EventsResponse, error) {
	return &types.EventsResponse{Success: true, EventsProcessed: len(req.Events), SessionID: req.SessionID}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Root().PersistentFlags().GetBool("debug")
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.Init(log.Config{Level: level})

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var opts []tracker.Option
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		if cfg.Collector == "" {
			cfg.Collector = "offline"
		}
		opts = append(opts, tracker.WithTransport(discardTransport{}))
	}

	t, err := tracker.New(cfg, opts...)
	if err != nil {
		return err
	}

	input, closeInput, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer closeInput()

	src := signal.NewReplaySource(input)
	if err := t.Attach(src); err != nil {
		return err
	}

	<-src.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.Close(ctx); err != nil {
		return err
	}

	printFunnelSummary(t)
	printPersonaSummary(t)
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	collector, _ := cmd.Flags().GetString("collector")

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if collector != "" {
		cfg.Collector = collector
	}
	return cfg, nil
}

func openInput(cmd *cobra.Command) (io.Reader, func(), error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %v", err)
	}
	return f, func() { f.Close() }, nil
}

func printFunnelSummary(t *tracker.Tracker) {
	eng := t.Funnels()
	if eng == nil {
		return
	}
	funnels := eng.Funnels()
	if len(funnels) == 0 {
		return
	}

	fmt.Println("Funnels:")
	for _, f := range funnels {
		stats, ok := eng.Stats(f.ID)
		if !ok {
			continue
		}
		fmt.Printf("  %s: %d entered, %d completed (%.1f%%)\n",
			f.Name, stats.Entered, stats.Completions, stats.CompletionRate*100)
		for _, step := range stats.Steps {
			fmt.Printf("    %-20s reached=%-5d dropoff=%.1f%%\n",
				step.StepID, step.Reached, step.DropoffRate*100)
		}
	}
}

func printPersonaSummary(t *tracker.Tracker) {
	eng := t.Personas()
	if eng == nil {
		return
	}
	segments := eng.Segments()
	if len(segments) == 0 {
		return
	}

	fmt.Println("Personas:")
	for _, seg := range segments {
		fmt.Printf("  %-16s members=%-4d active=%-4d avgSession=%.0fms conversion=%.1f%%\n",
			seg.PersonaID, len(seg.Members), seg.ActiveUsers,
			seg.AvgSessionDuration, seg.ConversionRate*100)
	}
}
