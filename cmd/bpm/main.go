package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"bufferpool-golang/src/buffer"
	"bufferpool-golang/src/config"
	"bufferpool-golang/src/disk"
	"bufferpool-golang/src/inspector"
	"bufferpool-golang/src/logging"
)

var (
	configPath = flag.String("config", "", "Path to a yaml config file")
	console    = flag.Bool("console", false, "Run the interactive console instead of the HTTP inspector")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dm, closeDisk, err := openDisk(cfg.Disk)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDisk(); err != nil {
			logger.WithError(err).Errorf("Cannot close database file.")
		}
	}()

	replacer, err := buffer.NewReplacer(strings.ToLower(cfg.Pool.Replacer), cfg.Pool.Size)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bpm, err := buffer.NewBufferPoolManager(cfg.Pool.Size, dm, replacer,
		buffer.WithLogger(logger), buffer.WithRegisterer(reg))
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"pool":     bpm.Id(),
		"frames":   cfg.Pool.Size,
		"replacer": replacer.Snapshot().Policy,
		"path":     cfg.Disk.Path,
	}).Infof("Buffer pool started.")

	var wg sync.WaitGroup
	if cfg.Flusher.Enabled {
		flusher := buffer.NewFlusher(bpm, cfg.Flusher.Interval, cfg.Flusher.PagesPerSecond)
		wg.Add(1)
		go func() {
			defer wg.Done()
			flusher.Run(ctx)
		}()
	}

	ins := inspector.New(bpm, logger)
	if *console {
		err = runConsole(ctx, ins)
	} else {
		err = serveHTTP(ctx, ins, reg, cfg.Inspector.Addr, logger)
	}
	stop()
	wg.Wait()

	if closeErr := bpm.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	logger.Infof("Buffer pool stopped.")
	return err
}

func openDisk(cfg config.DiskConfig) (buffer.DiskManager, func() error, error) {
	if cfg.Path == "" {
		return disk.NewMemManager(cfg.MaxPages), func() error { return nil }, nil
	}
	dm, err := disk.NewDiskManager(cfg.Path, disk.Options{
		DirectIO: cfg.DirectIO,
		MaxPages: cfg.MaxPages,
	})
	if err != nil {
		return nil, nil, err
	}
	return dm, dm.Close, nil
}

func runConsole(ctx context.Context, ins *inspector.Inspector) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bpm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()
	return ins.RunConsole(rl, rl.Stdout())
}

func serveHTTP(ctx context.Context, ins *inspector.Inspector, reg *prometheus.Registry, addr string, logger *log.Logger) error {
	server := &http.Server{
		Addr:    addr,
		Handler: ins.Handler(reg),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Inspector listening on %s.", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
