// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sampleconfig provides a single constant that contains the contents
// of the sample configuration file for spvwatch.
package sampleconfig

// FileContents is a string containing the commented example config for
// spvwatch.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Config file
; ------------------------------------------------------------------------------

; spvwatch reads spvwatch.conf from its application data directory, or the file
; passed with -C/--configfile on the command line.  Options given on the
; command line take precedence over this file.  This template is printed by
; spvwatch --sampleconfig.

; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use testnet.
; testnet=1

; Use the regression test network.
; regtest=1

; Use simnet.
; simnet=1

; Use signet.
; signet=1


; ------------------------------------------------------------------------------
; Filter settings
; ------------------------------------------------------------------------------

; Number of elements the default filter is sized for.  The filter installed on
; start and after every reset holds this many items at the false positive rate
; below.
; filteritems=10000

; False positive rate of the default filter.  Must be between 0 and 1
; exclusive.  Lower rates leak less about the watched items to peers at the
; cost of fewer matches hiding the real ones.
; filterfprate=0.01

; Replace the filter with a fresh one holding only the new item every time an
; item is added instead of accumulating all added items.
; replaceitems=1

; Number of matched transaction ids remembered to drop duplicates relayed by
; several peers.
; maxmatchedtxs=100000


; ------------------------------------------------------------------------------
; Event replay
; ------------------------------------------------------------------------------

; Replay network events recorded in this file.  Environment variables are
; expanded so they may be used.
; eventfile=~/spvwatch-events.txt


; ------------------------------------------------------------------------------
; Metrics
; ------------------------------------------------------------------------------

; Serve prometheus metrics on this interface/port.  Disabled when not set.
; metricslisten=127.0.0.1:9332


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use spvwatch --debuglevel=show to list
; available subsystems.
; debuglevel=info

; The directory to store log files.
; logdir=~/.spvwatch/logs

; Only log to standard error.
; nofilelogging=1
`
