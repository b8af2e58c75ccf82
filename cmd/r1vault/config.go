package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/r1vault/cmd/utils"
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/ledger"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
	"github.com/tos-network/r1vault/vault"
	"github.com/tos-network/r1vault/vaultdb"
	"github.com/urfave/cli/v2"
)

var commandDumpConfig = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LedgerConfig selects the simulated ledger and the vault deployment.
type LedgerConfig struct {
	DataDir              string
	DBEngine             string
	ProgramID            common.Address
	LamportsPerSignature uint64
	DerivationCacheSize  int
}

type r1vaultConfig struct {
	Ledger LedgerConfig
	Log    utils.LogSettings
}

func defaultConfig() r1vaultConfig {
	return r1vaultConfig{
		Ledger: LedgerConfig{
			DataDir:              utils.DefaultDataDir(),
			DBEngine:             utils.EngineLevelDB,
			ProgramID:            params.VaultProgramID,
			LamportsPerSignature: params.DefaultRuntimeConfig.LamportsPerSignature,
			DerivationCacheSize:  ledger.DefaultConfig.DerivationCacheSize,
		},
		Log: utils.LogSettings{
			Verbosity: 3,
			Format:    utils.FormatTerminal,
		},
	}
}

func loadConfig(file string, cfg *r1vaultConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, applies command line flags on top
// and installs the root logger.
func makeConfig(ctx *cli.Context) (r1vaultConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(utils.DataDirFlag.Name) {
		cfg.Ledger.DataDir = ctx.String(utils.DataDirFlag.Name)
	}
	if ctx.IsSet(utils.DBEngineFlag.Name) {
		cfg.Ledger.DBEngine = ctx.String(utils.DBEngineFlag.Name)
	}
	if ctx.IsSet(utils.LamportsPerSignatureFlag.Name) {
		cfg.Ledger.LamportsPerSignature = ctx.Uint64(utils.LamportsPerSignatureFlag.Name)
	}
	if ctx.IsSet(utils.DerivationCacheFlag.Name) {
		cfg.Ledger.DerivationCacheSize = ctx.Int(utils.DerivationCacheFlag.Name)
	}
	if ctx.IsSet(utils.ProgramIDFlag.Name) {
		id, err := common.Base58ToAddress(ctx.String(utils.ProgramIDFlag.Name))
		if err != nil {
			return cfg, fmt.Errorf("option %q: %w", utils.ProgramIDFlag.Name, err)
		}
		cfg.Ledger.ProgramID = id
	}
	utils.ApplyLogFlags(ctx, &cfg.Log)
	if err := utils.SetupLogging(cfg.Log); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}

// registry returns the programs a ledger for cfg dispatches to.
func (cfg *LedgerConfig) registry() (*program.Registry, error) {
	reg := program.NewRegistry()
	if err := reg.Register(secp256r1.Precompile{}); err != nil {
		return nil, err
	}
	if err := vault.Register(reg, cfg.ProgramID, secp256r1.TrustedVerifier{}); err != nil {
		return nil, err
	}
	return reg, nil
}

// openLedger opens the simulated ledger. The returned store must be closed
// by the caller.
func openLedger(cfg *r1vaultConfig) (*ledger.Ledger, vaultdb.KeyValueStore, error) {
	db, err := utils.OpenDatabase(cfg.Ledger.DBEngine, cfg.Ledger.DataDir, false)
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.Ledger.registry()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	runtime := *params.DefaultRuntimeConfig
	runtime.LamportsPerSignature = cfg.Ledger.LamportsPerSignature
	l, err := ledger.New(&ledger.Config{Runtime: &runtime, DerivationCacheSize: cfg.Ledger.DerivationCacheSize}, db, reg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return l, db, nil
}
