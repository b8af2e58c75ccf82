// r1vault is a command line tool for secp256r1 vaults: it manages P-256
// keyfiles, derives vault addresses, encodes instructions and runs deposits
// and withdrawals against a local simulated ledger.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tos-network/r1vault/cmd/utils"
	"github.com/tos-network/r1vault/internal/flags"
	"github.com/urfave/cli/v2"
)

const (
	clientIdentifier   = "r1vault"
	defaultKeyfileName = "keyfile.json"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app = newApp()

func newApp() *cli.App {
	app := flags.NewApp(gitCommit, gitDate, "a secp256r1 vault toolkit")
	app.Flags = append(append([]cli.Flag{utils.ConfigFileFlag}, utils.LedgerFlags...), utils.LoggingFlags...)
	app.Commands = []*cli.Command{
		commandKeygen,
		commandInspect,
		commandDerive,
		commandEncode,
		commandAirdrop,
		commandDeposit,
		commandWithdraw,
		commandBalance,
		commandReceipt,
		commandDumpConfig,
		commandVersion,
	}
	return app
}

// Commonly used command line flags.
var (
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
	keyfileFlag = &cli.StringFlag{
		Name:  "keyfile",
		Usage: "P-256 keyfile of the vault owner",
		Value: defaultKeyfileName,
	}
	pubkeyFlag = &cli.StringFlag{
		Name:  "pubkey",
		Usage: "hex encoded compressed secp256r1 public key (overrides --keyfile)",
	}
	payerFlag = &cli.StringFlag{
		Name:  "payer",
		Usage: "base58 address paying fees and receiving withdrawals",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "amount in SOL, e.g. 1.5",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON object: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
