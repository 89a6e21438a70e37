// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/spvwatch/internal/log"
	"github.com/btcsuite/spvwatch/internal/sampleconfig"
	"github.com/btcsuite/spvwatch/internal/version"
	"github.com/btcsuite/spvwatch/watcher"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "spvwatch.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "spvwatch.log"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("spvwatch", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for spvwatch.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion      bool    `short:"V" long:"version" description:"Display version information and exit"`
	ShowSampleConfig bool    `long:"sampleconfig" description:"Show a sample configuration file and exit"`
	ConfigFile       string  `short:"C" long:"configfile" description:"Path to configuration file"`
	TestNet3         bool    `long:"testnet" description:"Use the test network"`
	RegressionTest   bool    `long:"regtest" description:"Use the regression test network"`
	SimNet           bool    `long:"simnet" description:"Use the simulation test network"`
	SigNet           bool    `long:"signet" description:"Use the signet test network"`
	DebugLevel       string  `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir           string  `long:"logdir" description:"Directory to log output"`
	NoFileLogging    bool    `long:"nofilelogging" description:"Disable file logging"`
	EventFile        string  `long:"eventfile" description:"Replay network events from this file"`
	FilterItems      uint32  `long:"filteritems" description:"Number of elements the default filter is sized for"`
	FilterFPRate     float64 `long:"filterfprate" description:"False positive rate of the default filter, between 0 and 1 exclusive"`
	ReplaceItems     bool    `long:"replaceitems" description:"Replace the filter with a fresh one on every added item instead of accumulating items"`
	MaxMatchedTxs    uint    `long:"maxmatchedtxs" description:"Number of matched transaction ids remembered to drop duplicates"`
	MetricsListen    string  `long:"metricslisten" description:"Serve prometheus metrics on this interface/port (disabled when empty)"`

	params *chaincfg.Params
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, log.SupportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// coordinatorConfig returns the coordinator settings selected by the options.
func (cfg *config) coordinatorConfig() *watcher.Config {
	policy := watcher.AccumulateItems
	if cfg.ReplaceItems {
		policy = watcher.ReplaceItems
	}

	return &watcher.Config{
		ChainParams:    cfg.params,
		FilterElements: cfg.FilterItems,
		FilterFPRate:   cfg.FilterFPRate,
		ItemPolicy:     policy,
		MaxMatchedTxs:  cfg.MaxMatchedTxs,
	}
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//  5. Validate the network, sizing and logging options
//
// The above results in spvwatch functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig(args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		DebugLevel:    defaultLogLevel,
		LogDir:        defaultLogDir,
		FilterItems:   watcher.DefaultFilterElements,
		FilterFPRate:  watcher.DefaultFilterFPRate,
		MaxMatchedTxs: watcher.DefaultMaxMatchedTxs,
		ConfigFile:    defaultConfigFile,
		params:        &chaincfg.MainNetParams,
	}

	// Pre-parse the command line options to see if an alternative config
	// file, the version flag, or the sample config flag was specified.  Any
	// errors aside from the help message error can be ignored here since
	// they will be caught by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Show the sample config and exit if requested.
	if preCfg.ShowSampleConfig {
		fmt.Print(sampleconfig.FileContents)
		os.Exit(0)
	}

	// Load additional config from file.  A missing file is only an error
	// when it was explicitly requested.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(
		cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) ||
			preCfg.ConfigFile != defaultConfigFile {

			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	funcName := "loadConfig"
	numNets := 0
	if cfg.TestNet3 {
		numNets++
		cfg.params = &chaincfg.TestNet3Params
	}
	if cfg.RegressionTest {
		numNets++
		cfg.params = &chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		cfg.params = &chaincfg.SimNetParams
	}
	if cfg.SigNet {
		numNets++
		cfg.params = &chaincfg.SigNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet, regtest, simnet, and signet params " +
			"can't be used together -- choose one of the four"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate the filter sizing.
	if cfg.FilterItems == 0 {
		str := "%s: the filteritems option must be positive"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}
	if !(cfg.FilterFPRate > 0 && cfg.FilterFPRate < 1) {
		str := "%s: the filterfprate option must be between 0 and 1 " +
			"exclusive -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.FilterFPRate)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Append the network type to the log directory so it is "namespaced"
	// per network.
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir),
		cfg.params.Name)
	if cfg.EventFile != "" {
		cfg.EventFile = cleanAndExpandPath(cfg.EventFile)
	}

	return &cfg, remainingArgs, nil
}
