package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/tablecal/internal/db"
	"github.com/banshee-data/tablecal/internal/monitoring"
)

const shutdownTimeout = 5 * time.Second

// adminServer serves the /debug/ pages in the background.
type adminServer struct {
	server *http.Server
	addr   net.Addr
	wg     sync.WaitGroup
	stop   context.CancelFunc
}

// newAdminMux mounts the metrics page and, when database is non-nil, the
// journal pages.
func newAdminMux(database *db.DB) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)
	debug.Handle("prometheus", "Prometheus metrics", monitoring.MetricsHandler())
	if database != nil {
		if err := database.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// startAdmin listens on addr and serves h until ctx is done or Stop is
// called.
func startAdmin(ctx context.Context, addr string, h http.Handler) (*adminServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := context.WithCancel(ctx)
	a := &adminServer{
		server: &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		addr:   ln.Addr(),
		stop:   stop,
	}
	monitoring.Logf("serving debug pages on http://%s/debug/", a.addr)

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("debug server failed: %v", err)
		}
	}()
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("debug server shutdown error: %v", err)
			if err := a.server.Close(); err != nil {
				monitoring.Logf("debug server force close error: %v", err)
			}
		}
	}()
	return a, nil
}

// Addr returns the address the server is listening on.
func (a *adminServer) Addr() net.Addr { return a.addr }

// Stop shuts the server down and waits for it to finish.
func (a *adminServer) Stop() {
	a.stop()
	a.wg.Wait()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "tablecal.db", "Journal database path")
	listen := fs.String("listen", ":8080", "Listen address")
	samplesPath := fs.String("samples", "", "Also serve the leveling chart for these x,y,z samples")
	configPath := fs.String("config", "", "Machine configuration file used for the leveling chart")
	fs.Parse(args)

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	mux, err := newAdminMux(database)
	if err != nil {
		return err
	}
	if *samplesPath != "" {
		if err := attachLeveling(mux, *configPath, *samplesPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	admin, err := startAdmin(ctx, *listen, mux)
	if err != nil {
		return err
	}
	<-ctx.Done()
	admin.Stop()
	monitoring.Logf("graceful shutdown complete")
	return nil
}

// attachLeveling mounts the chart and plot of the samples at path as debug
// pages.
func attachLeveling(mux *http.ServeMux, configPath, samplesPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	samples, err := readSamplesFile(samplesPath)
	if err != nil {
		return err
	}
	report, heights, err := levelReport(cfg, samples)
	if err != nil {
		return err
	}
	debug := tsweb.Debugger(mux)
	debug.Handle("leveling", "Leveling residual chart", levelingHandler(report, heights, false))
	debug.Handle("leveling.png", "Leveling residual plot", levelingHandler(report, heights, true))
	return nil
}
