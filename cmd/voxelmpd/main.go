// Command voxelmpd runs the voxel-world sandbox server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxelmp/coreserver/internal/audit"
	"github.com/voxelmp/coreserver/internal/config"
	"github.com/voxelmp/coreserver/internal/metrics"
	"github.com/voxelmp/coreserver/internal/voxserver"
)

func main() {
	var (
		configPath string
		address    string
		maxPlayers int8
		auditPath  string
	)

	root := &cobra.Command{
		Use:   "voxelmpd",
		Short: "voxelmpd runs the voxel-world sandbox server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, address, maxPlayers, auditPath)
		},
	}

	root.Flags().StringVar(&configPath, "config", "voxelmpd.yaml", "path to the YAML configuration file")
	root.Flags().StringVar(&address, "address", "", "override the listen address from the config file")
	root.Flags().Int8Var(&maxPlayers, "max-players", 0, "override max players from the config file (0 = use config)")
	root.Flags().StringVar(&auditPath, "audit-db", "", "optional path to a SQLite audit log")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, address string, maxPlayers int8, auditPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Server.IP = address
	}
	if maxPlayers > 0 {
		cfg.Server.MaxPlayers = maxPlayers
	}

	m := metrics.New()

	srv, err := voxserver.New(cfg, m)
	if err != nil {
		return err
	}
	defer srv.Close()

	if auditPath != "" {
		a, err := audit.Open(auditPath)
		if err != nil {
			return err
		}
		defer a.Close()
		srv.SetAuditLog(a)
	}

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		httpSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	stopWatch, err := config.Watch(configPath, func() {
		log.Printf("config file %s changed on disk (restart to apply)", configPath)
	})
	if err == nil {
		defer stopWatch()
	}

	// The signal handler only clears the running flag (cancel); it must never
	// touch srv directly, since Run's tick loop owns World/roster/queue with
	// no lock and may be mid-tick when the signal arrives. Run itself performs
	// the autosave-then-kick-players sequence, in order, between ticks.
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("shutting down (received signal: %v)", sig)
		cancel()
	}()

	log.Printf("voxelmpd listening on %s (max players %d)", cfg.Server.IP, cfg.Server.MaxPlayers)
	return srv.Run(ctx)
}
