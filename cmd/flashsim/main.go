// FlashSim - an in-process Redis emulation server
//
// Usage:
//
//	flashsim [flags]
//
// Flags:
//
//	-config string      JSON config file (flags override its values)
//	-addr string        Server address (default ":6379")
//	-databases int      Number of logical databases (default 16)
//	-server-version int Emulated major version (default 7)
//	-seed int           Seed for SPOP/SRANDMEMBER/RANDOMKEY (default: clock)
//	-requirepass string Password for authentication (default: none)
//	-maxclients int     Maximum number of clients (default: 10000)
//	-timeout duration   Client read timeout (default: 0 = no timeout)
//	-loglevel string    Log level: debug, info (default: info)
//	-webaddr string     Web API and /metrics address (default ":8080")
//	-noweb              Disable the web API
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flashdb/flashsim/internal/config"
	"github.com/flashdb/flashsim/internal/engine"
	"github.com/flashdb/flashsim/internal/server"
	"github.com/flashdb/flashsim/internal/version"
	"github.com/flashdb/flashsim/internal/web"
)

func main() {
	defaults := config.DefaultConfig()
	configPath := flag.String("config", "", "JSON config file")
	addr := flag.String("addr", defaults.Addr, "Server address")
	databases := flag.Int("databases", defaults.Databases, "Number of logical databases")
	serverVersion := flag.Int("server-version", defaults.ServerVersion, "Emulated major server version")
	seed := flag.Int64("seed", 0, "Seed for random sampling (default: seed from clock)")
	requirePass := flag.String("requirepass", "", "Password for AUTH command")
	maxClients := flag.Int("maxclients", defaults.MaxClients, "Maximum number of clients")
	timeout := flag.Duration("timeout", 0, "Client read timeout (0 = no timeout)")
	logLevel := flag.String("loglevel", defaults.LogLevel, "Log level: debug, info")
	webAddr := flag.String("webaddr", defaults.WebAddr, "Web API & metrics address")
	noWeb := flag.Bool("noweb", false, "Disable web API")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "databases":
			cfg.Databases = *databases
		case "server-version":
			cfg.ServerVersion = *serverVersion
		case "seed":
			cfg.Seed = seed
		case "requirepass":
			cfg.Password = *requirePass
		case "maxclients":
			cfg.MaxClients = *maxClients
		case "timeout":
			cfg.ReadTimeout = config.Duration(*timeout)
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "webaddr":
			cfg.WebAddr = *webAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("FlashSim v%s starting...", version.Version)
	log.Printf("Emulating server version %d with %d databases", cfg.ServerVersion, cfg.Databases)
	log.Printf("Max clients: %d", cfg.MaxClients)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []engine.Option{
		engine.WithDatabases(cfg.Databases),
		engine.WithVersion(cfg.ServerVersion),
		engine.WithRegisterer(reg),
		engine.WithCDCCapacity(cfg.CDCCapacity),
		engine.WithHotKeys(cfg.HotKeysTopN, time.Minute),
	}
	if cfg.Seed != nil {
		opts = append(opts, engine.WithSeed(*cfg.Seed))
	}
	e := engine.NewServer(opts...)
	defer e.Close()

	srv := server.NewWithConfig(cfg.Addr, e, server.Config{
		Password:   cfg.Password,
		MaxClients: cfg.MaxClients,
		Timeout:    time.Duration(cfg.ReadTimeout),
		LogLevel:   cfg.LogLevel,
	})

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if !*noWeb {
		log.Printf("Web API available at http://localhost%s", cfg.WebAddr)
		webSrv := web.New(cfg.WebAddr, e, reg)
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				log.Printf("Web server error: %v", err)
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("FlashSim shutdown complete")
}
