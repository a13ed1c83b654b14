package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vlhsmylv/standlog-script/pkg/collector"
	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
)

var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "Run the development collector",
	Long: `Run a local collector that accepts session and event batches from a
tracker. Intended for development and integration testing, not for
production ingest.

Examples:
  standlog collector --listen :8080`,
	RunE: runCollector,
}

func init() {
	collectorCmd.Flags().String("listen", ":8080", "Listen address")

	rootCmd.AddCommand(collectorCmd)
}

func runCollector(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Root().PersistentFlags().GetBool("debug")
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.Init(log.Config{Level: level})

	addr, _ := cmd.Flags().GetString("listen")

	metrics.SetVersion(Version)
	metrics.RegisterComponent("collector", true, "serving")

	srv := collector.NewServer()
	mux := http.NewServeMux()
	mux.Handle("/", srv.Router())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("Collector listening on %s. Press Ctrl+C to stop.\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		return fmt.Errorf("collector error: %v", err)
	}

	return httpSrv.Close()
}
