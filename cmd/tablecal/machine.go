package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/banshee-data/tablecal/internal/config"
	"github.com/banshee-data/tablecal/internal/db"
	"github.com/banshee-data/tablecal/internal/grbl"
	"github.com/banshee-data/tablecal/internal/grblsim"
	"github.com/banshee-data/tablecal/internal/monitoring"
	"github.com/banshee-data/tablecal/internal/serialport"
)

const (
	// devZFloor bounds the simulator's Z travel when the config leaves Z open.
	devZFloor = -100
	// devLimitSlack keeps the simulator's soft limits clear of rounding in
	// the three-decimal G-code words.
	devLimitSlack = 0.001
)

// machineFlags are shared by every command that talks to a controller.
type machineFlags struct {
	configPath  string
	port        string
	baud        int
	dbPath      string
	listen      string
	dev         bool
	logCommands bool
}

func (m *machineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.configPath, "config", "", "Machine configuration file (.json, .yaml or .yml)")
	fs.StringVar(&m.port, "port", "", "Serial port (overrides the config)")
	fs.IntVar(&m.baud, "baud", 0, "Baud rate (overrides the config)")
	fs.StringVar(&m.dbPath, "db", "", "Journal database path (disabled when empty)")
	fs.StringVar(&m.listen, "listen", "", "Serve /debug/ pages on this address while running")
	fs.BoolVar(&m.dev, "dev", false, "Drive a simulated controller")
	fs.BoolVar(&m.logCommands, "log-commands", false, "Log every line sent to the controller")
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (m *machineFlags) loadConfig() (*config.MachineConfig, error) {
	cfg := config.DefaultMachineConfig()
	if m.configPath != "" {
		var err error
		if cfg, err = config.LoadMachineConfig(m.configPath); err != nil {
			return nil, err
		}
	}
	if m.port != "" {
		cfg.Port = &m.port
	}
	if m.baud != 0 {
		cfg.BaudRate = &m.baud
	}
	if m.logCommands {
		enabled := true
		cfg.CommandLogging = &enabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// machine is an open controller session with its optional journal and
// debug server.
type machine struct {
	cfg     *config.MachineConfig
	port    serialport.SerialPorter
	sim     *grblsim.Sim
	db      *db.DB
	journal *db.Journal
	driver  *grbl.Driver
	admin   *adminServer
}

// simFactory opens the simulator as if it were a serial port.
func simFactory(sim *grblsim.Sim) serialport.SerialPortFactory {
	return serialport.SerialPortOpener(func(path string, opts serialport.PortOptions) (serialport.SerialPorter, error) {
		if err := sim.SetReadTimeout(opts.ReadTimeout); err != nil {
			return nil, err
		}
		return serialport.NewTimeoutReader(sim), nil
	})
}

// devLimits mirrors the configured envelope as simulator soft limits.
func devLimits(env grbl.Envelope) grblsim.Limits {
	xlo, xhi := env.Bounds(grbl.AxisX)
	ylo, yhi := env.Bounds(grbl.AxisY)
	zlo, zhi := env.Bounds(grbl.AxisZ)
	if math.IsInf(zlo, -1) {
		zlo = devZFloor
	}
	return grblsim.Limits{
		MinX: xlo - devLimitSlack, MaxX: xhi + devLimitSlack,
		MinY: ylo - devLimitSlack, MaxY: yhi + devLimitSlack,
		MinZ: zlo - devLimitSlack, MaxZ: zhi + devLimitSlack,
	}
}

// openMachine opens the port, journal and debug server and synchronizes
// with the controller. The caller must Close the machine.
func openMachine(ctx context.Context, m *machineFlags) (_ *machine, err error) {
	cfg, err := m.loadConfig()
	if err != nil {
		return nil, err
	}
	mc := &machine{cfg: cfg}
	defer func() {
		if err != nil {
			mc.Close()
		}
	}()

	factory := serialport.RealFactory
	if m.dev {
		mc.sim = grblsim.New(grblsim.Options{
			Limits: devLimits(cfg.Envelope()),
			Logf:   monitoring.Prefixed("sim"),
		})
		factory = simFactory(mc.sim)
	}

	if m.dbPath != "" {
		if mc.db, err = db.NewDB(m.dbPath); err != nil {
			return nil, err
		}
	}
	if m.listen != "" {
		mux, err := newAdminMux(mc.db)
		if err != nil {
			return nil, err
		}
		if mc.admin, err = startAdmin(ctx, m.listen, mux); err != nil {
			return nil, err
		}
	}

	if mc.port, err = factory.Open(cfg.GetPort(), cfg.PortOptions()); err != nil {
		return nil, err
	}
	monitoring.Logf("opened %s at %d baud", cfg.GetPort(), cfg.GetBaudRate())

	opts := cfg.DriverOptions()
	if mc.db != nil {
		if mc.journal, err = mc.db.StartSession(cfg.GetPort()); err != nil {
			return nil, err
		}
		opts.Journal = mc.journal
		monitoring.Logf("journaling session %s to %s", mc.journal.ID(), m.dbPath)
	}
	mc.driver = grbl.New(mc.port, opts)

	if err := mc.driver.Synchronize(); err != nil {
		return nil, err
	}
	return mc, nil
}

// Close ends the journal session and releases everything openMachine opened.
func (mc *machine) Close() error {
	if mc.journal != nil {
		if err := mc.journal.End(); err != nil {
			monitoring.Logf("failed to end session %s: %v", mc.journal.ID(), err)
		}
	}
	if mc.port != nil {
		if err := mc.port.Close(); err != nil {
			monitoring.Logf("failed to close port: %v", err)
		}
	}
	if mc.admin != nil {
		mc.admin.Stop()
	}
	if mc.db != nil {
		return mc.db.Close()
	}
	return nil
}

// prepare homes the machine and makes the homed corner the G55 origin.
func (mc *machine) prepare() error {
	if err := mc.driver.Home(); err != nil {
		return err
	}
	if err := mc.driver.DefineWorkOrigin(); err != nil {
		return err
	}
	return mc.driver.SelectWorkOrigin()
}
