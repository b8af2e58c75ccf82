// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for r1vault commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tos-network/r1vault/internal/flags"
	"github.com/tos-network/r1vault/log"
	"github.com/tos-network/r1vault/vaultdb"
	"github.com/tos-network/r1vault/vaultdb/boltdb"
	"github.com/tos-network/r1vault/vaultdb/leveldb"
	"github.com/tos-network/r1vault/vaultdb/memorydb"
	"github.com/urfave/cli/v2"
)

// Supported ledger database engines.
const (
	EngineLevelDB = "leveldb"
	EngineBolt    = "bolt"
	EngineMemory  = "memory"
)

// Log output formats.
const (
	FormatTerminal = "terminal"
	FormatLogfmt   = "logfmt"
	FormatJSON     = "json"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
var (
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}

	// Ledger settings
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Data directory of the simulated ledger",
		Value:    DefaultDataDir(),
		Category: flags.LedgerCategory,
	}
	DBEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('leveldb', 'bolt' or 'memory')",
		Value:    EngineLevelDB,
		Category: flags.LedgerCategory,
	}
	LamportsPerSignatureFlag = &cli.Uint64Flag{
		Name:     "fee.signature",
		Usage:    "Lamports charged per batch and precompile signature",
		Category: flags.LedgerCategory,
	}
	DerivationCacheFlag = &cli.IntFlag{
		Name:     "cache.derivations",
		Usage:    "Number of vault address derivations kept in memory",
		Category: flags.LedgerCategory,
	}
	ProgramIDFlag = &cli.StringFlag{
		Name:     "program",
		Usage:    "Base58 address the vault program is deployed at",
		Category: flags.VaultCategory,
	}

	// Logging and debug settings
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	LogFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log format to use ('terminal', 'logfmt' or 'json')",
		Value:    FormatTerminal,
		Category: flags.LoggingCategory,
	}
	LogDebugFlag = &cli.BoolFlag{
		Name:     "log.debug",
		Usage:    "Prepends log messages with call-site location (file and line number)",
		Category: flags.LoggingCategory,
	}
)

var (
	// LedgerFlags configure the simulated ledger.
	LedgerFlags = []cli.Flag{
		DataDirFlag,
		DBEngineFlag,
		LamportsPerSignatureFlag,
		DerivationCacheFlag,
		ProgramIDFlag,
	}
	// LoggingFlags configure the root logger.
	LoggingFlags = []cli.Flag{
		VerbosityFlag,
		LogFormatFlag,
		LogDebugFlag,
	}
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// DefaultDataDir is the default data directory to use for the ledger.
func DefaultDataDir() string {
	home := flags.HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "R1Vault")
	case "windows":
		if appdata := os.Getenv("LOCALAPPDATA"); appdata != "" {
			return filepath.Join(appdata, "R1Vault")
		}
		return filepath.Join(home, "AppData", "Local", "R1Vault")
	default:
		return filepath.Join(home, ".r1vault")
	}
}

// LogSettings is the logger configuration shared by flags and config files.
type LogSettings struct {
	Verbosity int
	Format    string
	Debug     bool `toml:",omitempty"`
}

// ApplyLogFlags overrides cfg with the logging flags set on the command line.
func ApplyLogFlags(ctx *cli.Context, cfg *LogSettings) {
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(VerbosityFlag.Name)
	}
	if ctx.IsSet(LogFormatFlag.Name) {
		cfg.Format = ctx.String(LogFormatFlag.Name)
	}
	if ctx.IsSet(LogDebugFlag.Name) {
		cfg.Debug = ctx.Bool(LogDebugFlag.Name)
	}
}

// LogHandler builds the root log handler writing to w. Colors are used for
// the terminal format when w is a terminal.
func LogHandler(w io.Writer, cfg LogSettings) (log.Handler, error) {
	var format log.Format
	switch strings.ToLower(cfg.Format) {
	case "", FormatTerminal:
		usecolor := false
		if f, ok := w.(*os.File); ok {
			fd := f.Fd()
			usecolor = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
			if usecolor {
				w = colorable.NewColorable(f)
			}
		}
		format = log.TerminalFormat(usecolor)
	case FormatLogfmt:
		format = log.LogfmtFormat()
	case FormatJSON:
		format = log.JSONFormat()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	h := log.StreamHandler(w, format)
	if cfg.Debug {
		h = log.CallerFileHandler(h)
	}
	if cfg.Verbosity <= 0 {
		return log.DiscardHandler(), nil
	}
	return log.LvlFilterHandler(log.Lvl(cfg.Verbosity), h), nil
}

// SetupLogging installs the root log handler on stderr.
func SetupLogging(cfg LogSettings) error {
	h, err := LogHandler(os.Stderr, cfg)
	if err != nil {
		return err
	}
	log.Root().SetHandler(h)
	return nil
}

// OpenDatabase opens the ledger store of the given engine inside datadir.
func OpenDatabase(engine, datadir string, readonly bool) (vaultdb.KeyValueStore, error) {
	if engine == EngineMemory {
		return memorydb.New(), nil
	}
	if datadir == "" {
		return nil, fmt.Errorf("no data directory for %s database", engine)
	}
	datadir = flags.ExpandPath(datadir)
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, err
	}
	switch engine {
	case EngineLevelDB:
		db, err := leveldb.New(filepath.Join(datadir, "ledger"), 16, 16, readonly)
		if err != nil {
			return nil, err
		}
		return db, nil
	case EngineBolt:
		db, err := boltdb.New(filepath.Join(datadir, "ledger.bolt"), readonly)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database engine %q", engine)
	}
}
