package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	matterdconfig "github.com/mkniffen/matterd/pkg/config"
	"github.com/mkniffen/matterd/pkg/metrics"
	metricsprom "github.com/mkniffen/matterd/pkg/metrics/prometheus"
	"github.com/mkniffen/matterd/pkg/node"
	"github.com/mkniffen/matterd/pkg/storage"
	"github.com/mkniffen/matterd/pkg/storage/gormstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Matter device node and block until interrupted",
	RunE:  runServe,
}

func init() {
	matterdconfig.RegisterFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfigFile(cmd); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := matterdconfig.BindFlags(v, cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	cfg, err := matterdconfig.Load(v)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	sink, err := startMetrics(cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("starting metrics: %w", err)
	}

	n, err := node.New(node.Config{
		Port:          cfg.Port,
		Discriminator: cfg.Discriminator,
		Passcode:      cfg.Passcode,
		DeviceName:    cfg.DeviceName,
		VendorID:      cfg.VendorIDValue(),
		ProductID:     cfg.ProductID,
		Store:         store,
		Sink:          sink,
		OnStateChanged: func(s node.State) {
			log.Printf("matterd: state changed: %s", s)
		},
	})
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}
	printOnboardingInfo(n)

	<-ctx.Done()
	log.Println("matterd: shutting down")
	return n.Stop()
}

func openStore(path string) (storage.Store, error) {
	if path == "" {
		return storage.NewMemoryStore(), nil
	}
	return gormstore.New(path)
}

// startMetrics brings up a Prometheus registry and /metrics endpoint
// when addr is non-empty, returning a no-op sink otherwise.
func startMetrics(addr string) (metrics.Sink, error) {
	if addr == "" {
		return metrics.NopSink{}, nil
	}
	reg := prometheus.NewRegistry()
	metricsprom.InitRegistry(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("matterd: metrics server stopped: %v", err)
		}
	}()

	return metricsprom.New(), nil
}

func printOnboardingInfo(n *node.Node) {
	qrCode, manualCode, err := n.SetupPayload()
	if err != nil {
		log.Printf("matterd: encoding setup payload: %v", err)
		return
	}
	fmt.Println("========================================")
	fmt.Println("          Matter Device Ready")
	fmt.Println("========================================")
	fmt.Printf("QR Code:        %s\n", qrCode)
	fmt.Printf("Manual Code:    %s\n", manualCode)
	fmt.Println("========================================")
}
