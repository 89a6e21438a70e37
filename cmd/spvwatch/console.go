// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/spvwatch/watcher"
)

// filterCoordinator is the part of watcher.Coordinator driven by the console.
type filterCoordinator interface {
	AddFilterItem(data string) error
	SendLoadFilter() error
	ResetFilter() error
	ClearFilterAndPeers() error
	RequestBlocks(begin, end uint64) error
	Status() (*watcher.Status, error)
}

// errQuit is returned by runCommand for the quit command.
var errQuit = errors.New("quit requested")

const consoleHelp = `Commands:
  add <address|hex>       add an item to the filter
  load                    send the filter to peers that do not hold it
  reset                   install an empty filter
  clear                   install an empty filter and send it to all peers
  rescan <begin> [end]    fetch merkle blocks, end defaults to the tip
  status                  show the filter and peer state
  help                    show this help
  quit                    exit`

// runCommand executes a single console line against the coordinator and
// writes its outcome to w.
func runCommand(line string, c filterCoordinator, w io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "add":
		if len(args) != 1 {
			return fmt.Errorf("usage: add <address|hex>")
		}
		if err := c.AddFilterItem(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(w, "added %s\n", args[0])

	case "load":
		return c.SendLoadFilter()

	case "reset":
		return c.ResetFilter()

	case "clear":
		return c.ClearFilterAndPeers()

	case "rescan":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: rescan <begin> [end]")
		}
		begin, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid begin height: %w", err)
		}

		var end uint64
		if len(args) == 2 {
			end, err = strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid end height: %w", err)
			}
		} else {
			status, err := c.Status()
			if err != nil {
				return err
			}
			end = status.Tip
		}
		return c.RequestBlocks(begin, end)

	case "status":
		status, err := c.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "tip %d, filter %d bytes/%d hash funcs, dirty %v, "+
			"scanning %v\nknown peers %v\narmed peers %v\n",
			status.Tip, status.FilterSize, status.HashFuncs,
			status.Dirty, status.Scanning, status.Known, status.Armed)

	case "help":
		fmt.Fprintln(w, consoleHelp)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}

	return nil
}

// runConsole reads commands from r until it is exhausted, which returns nil,
// or the quit command is given, which returns errQuit.  Command errors are reported on w; the console only ends early
// when the coordinator stopped.
func runConsole(r io.Reader, w io.Writer, c filterCoordinator) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		err := runCommand(scanner.Text(), c, w)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return err
		case errors.Is(err, watcher.ErrShuttingDown):
			return err
		default:
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	return scanner.Err()
}
