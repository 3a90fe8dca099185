package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/solexious/LUMOS-Code/announce"
	c "github.com/solexious/LUMOS-Code/config"
	"github.com/solexious/LUMOS-Code/logging"
	"github.com/solexious/LUMOS-Code/power"
	"github.com/solexious/LUMOS-Code/server"
)

const shutdownTimeout = 5 * time.Second

// App wires the loaded configuration to its consumers: the config API, the
// MQTT announcement and the logger. Every consumer reads the record through
// the watcher, never through a global.
type App struct {
	cfile      string
	watcher    *c.Watcher
	httpServer *http.Server
	publisher  *announce.Publisher
	monitor    *power.Monitor
	resolver   server.Resolver
	stopsignal chan struct{}
	shutdownWg sync.WaitGroup
}

func NewApp(cfile string) *App {
	return &App{
		cfile:      cfile,
		resolver:   net.DefaultResolver,
		stopsignal: make(chan struct{}),
	}
}

func (a *App) current() *c.Config {
	return a.watcher.Current().Load()
}

func (a *App) initialise(conf *c.Config) error {
	if err := logging.Init(os.Stderr, conf.Logging); err != nil {
		return err
	}

	watcher, err := c.NewWatcher(a.cfile, conf)
	if err != nil {
		return err
	}
	a.watcher = watcher
	a.monitor = power.NewMonitor(conf.Power, power.DefaultWindow)

	if conf.Announce.Enabled {
		client, err := announce.Dial(conf.Announce, conf.Node.Name)
		if err != nil {
			// The node works without the broker, it is only not announced.
			slog.Error("Can't connect to the announce broker", "broker", conf.Announce.Broker, "error", err)
		} else {
			a.publisher = announce.NewPublisher(client, conf.Announce.TopicPrefix)
		}
	}

	a.httpServer = &http.Server{
		Addr:              conf.API.Listen,
		Handler:           newRouter(a.cfile, a.current, a.monitor),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// apply hands a (re)loaded record to the consumers.
func (a *App) apply(ctx context.Context, conf *c.Config) {
	logging.SetLevel(conf.Logging.Level)
	a.monitor.SetThresholds(conf.Power)

	addr := server.Resolve(ctx, conf.Server, a.resolver)
	slog.Info("Node configured",
		"node", conf.Node.Name,
		"schema", int(conf.SchemaVersion),
		"driver", conf.LED.Driver().String(),
		"channels", conf.LED.ChannelMode.Channels(),
		"server", addr.String(),
		"serverFromDNS", addr.FromDNS)

	if a.publisher != nil {
		if err := a.publisher.Announce(conf); err != nil {
			slog.Error("Announce failed", "error", err)
		}
	}
}

func (a *App) configLoop(ctx context.Context) {
	defer a.shutdownWg.Done()
	for {
		select {
		case <-a.stopsignal:
			return
		case <-a.watcher.Current().Changed():
			a.apply(ctx, a.current())
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	a.watcher.Start()
	a.apply(ctx, a.current())

	a.shutdownWg.Add(1)
	go a.configLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		slog.Info("Config API listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}
	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	slog.Info("Shutting down...")
	close(a.stopsignal)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := a.watcher.Stop(); err != nil {
		slog.Error("Stopping the config watcher failed", "error", err)
	}
	a.shutdownWg.Wait()
	if a.publisher != nil {
		a.publisher.Close()
	}
	if err := logging.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
	}
}

func main() {
	cfile := flag.String("config", c.CONFILE, "Config file")
	fromEnv := flag.Bool("env", false, "Build the config from LUMOS_* variables instead of a file (prints it and exits)")
	dump := flag.Int("dump-defaults", 0, "Print the default config of the given schema version and exit")
	schema := flag.Int("schema", 0, "Print the JSON schema of the given schema version and exit")
	flag.Parse()

	switch {
	case *dump != 0:
		if !c.SchemaVersion(*dump).Valid() {
			fmt.Fprintf(os.Stderr, "unsupported schema version %d\n", *dump)
			os.Exit(2)
		}
		conf := c.Defaults(c.SchemaVersion(*dump))
		if err := conf.Encode(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	case *schema != 0:
		src, err := c.Schema(c.SchemaVersion(*schema))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println(src)
		return
	case *fromEnv:
		conf, err := c.LoadEnv()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err := conf.Encode(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	conf, err := c.ReadConfig(*cfile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := NewApp(*cfile)
	if err := app.initialise(conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx); err != nil {
		slog.Error("Node stopped with error", "error", err)
		os.Exit(1)
	}
}

// Local Variables:
// compile-command: "go build"
// End:
