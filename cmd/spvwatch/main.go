// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/btcsuite/spvwatch/internal/log"
	"github.com/btcsuite/spvwatch/internal/version"
	"github.com/btcsuite/spvwatch/watcher"
	flags "github.com/jessevdk/go-flags"
)

var spvwLog = log.SpvwLog

// spvwatchMain is the real main function for spvwatch.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func spvwatchMain() error {
	cfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := log.InitLogRotator(logFile); err != nil {
			return err
		}
		defer func() {
			if log.LogRotator != nil {
				log.LogRotator.Close()
			}
		}()
	}

	interrupt := interruptListener()
	defer spvwLog.Info("Shutdown complete")

	spvwLog.Infof("Version %s on %s", version.String(), cfg.params.Name)

	// Everything below runs until quit is closed.  The coordinator is
	// stopped before quit is closed so nothing is left writing to the
	// engine or notification consumers.
	var wg sync.WaitGroup
	quit := make(chan struct{})
	defer func() {
		close(quit)
		wg.Wait()
	}()

	registry := newRegistry()
	commands := make(chan watcher.EngineCommand, engineQueueSize)
	events := make(chan watcher.Event)

	coordCfg := cfg.coordinatorConfig()
	coordCfg.Engine = watcher.NewChanEngine(commands, quit)
	coordCfg.Events = events
	coordCfg.Registerer = registry
	coordinator, err := watcher.New(coordCfg)
	if err != nil {
		spvwLog.Errorf("Unable to create filter coordinator: %v", err)
		return err
	}
	coordinator.Start()
	defer coordinator.Stop()

	wg.Add(2)
	go func() {
		defer wg.Done()
		logEngineCommands(commands, quit)
	}()
	go func() {
		defer wg.Done()
		printNotifications(os.Stdout, coordinator.Notifications(), quit)
	}()

	if cfg.MetricsListen != "" {
		server := newMetricsServer(cfg.MetricsListen, registry)
		server.Start()
		defer server.Stop()
	}

	if cfg.EventFile != "" {
		f, err := os.Open(cfg.EventFile)
		if err != nil {
			spvwLog.Errorf("Unable to open event file: %v", err)
			return err
		}
		defer f.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := replayEvents(f, events, quit); err != nil {
				spvwLog.Errorf("Event replay of %s failed: %v",
					cfg.EventFile, err)
				requestShutdown()
			}
		}()
	}

	// The console can not be interrupted while it waits on stdin, so it is
	// not part of the wait group.
	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- runConsole(os.Stdin, os.Stdout, coordinator)
	}()

	coordinatorDone := make(chan error, 1)
	go func() {
		coordinatorDone <- coordinator.WaitForShutdown()
	}()

	return waitForShutdown(interrupt, consoleDone, coordinatorDone,
		cfg.EventFile != "")
}

// waitForShutdown blocks until spvwatch should exit.  That is the case on an
// interrupt, when the coordinator stopped, or when the console ended.  With
// keepReplaying set, an exhausted console input only ends the console so a
// replay can carry on until interrupted; the quit command still exits.
func waitForShutdown(interrupt <-chan struct{}, consoleDone,
	coordinatorDone <-chan error, keepReplaying bool) error {

	for {
		select {
		case <-interrupt:
			return nil

		case err := <-consoleDone:
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				spvwLog.Errorf("Console failed: %v", err)
				return err
			}
			if !keepReplaying {
				return nil
			}
			spvwLog.Infof("Console input closed, replaying events " +
				"until interrupted")
			consoleDone = nil

		case err := <-coordinatorDone:
			if err != nil {
				spvwLog.Errorf("Filter coordinator stopped: %v", err)
				return err
			}
			return nil
		}
	}
}

func main() {
	if err := spvwatchMain(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
