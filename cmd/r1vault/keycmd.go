package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/ledger"
	"github.com/tos-network/r1vault/vault"
	"github.com/urfave/cli/v2"
)

type outputKey struct {
	PublicKey  string `json:"publicKey"`
	Vault      string `json:"vault"`
	Bump       uint8  `json:"bump"`
	PrivateKey string `json:"privateKey,omitempty"`
}

var (
	privateKeyFlag = &cli.StringFlag{
		Name:  "privatekey",
		Usage: "file containing a raw hex private key to import",
	}
	privateFlag = &cli.BoolFlag{
		Name:  "private",
		Usage: "include the private key in the output",
	}
)

var commandKeygen = &cli.Command{
	Name:      "keygen",
	Usage:     "generate a new vault owner keyfile",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Generate a new P-256 keyfile and print the vault it controls.

If you want to import an existing private key, it can be specified by setting
--privatekey with the location of the file containing the private key.
`,
	Flags: []cli.Flag{
		jsonFlag,
		privateKeyFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		path := ctx.Args().First()
		if path == "" {
			path = defaultKeyfileName
		}
		priv, err := p256.GenerateKey()
		if file := ctx.String(privateKeyFlag.Name); file != "" {
			priv, err = loadRawPrivateKey(file)
		}
		if err != nil {
			return err
		}
		k, err := newKeyfile(priv)
		if err != nil {
			return err
		}
		if err := writeKeyfile(path, k); err != nil {
			return err
		}
		out, err := describeKey(&cfg, p256.CompressPubkey(&priv.PublicKey))
		if err != nil {
			return err
		}
		return printKey(ctx, out)
	},
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "inspect a keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Print the public key and vault of a keyfile, and optionally its private key.
`,
	Flags: []cli.Flag{
		jsonFlag,
		privateFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		path := ctx.Args().First()
		if path == "" {
			path = defaultKeyfileName
		}
		priv, err := loadKeyfile(path)
		if err != nil {
			return err
		}
		out, err := describeKey(&cfg, p256.CompressPubkey(&priv.PublicKey))
		if err != nil {
			return err
		}
		if ctx.Bool(privateFlag.Name) {
			out.PrivateKey = common.Bytes2Hex(p256.FromECDSA(priv))
		}
		return printKey(ctx, out)
	},
}

func describeKey(cfg *r1vaultConfig, pub common.Secp256r1Pubkey) (*outputKey, error) {
	addr, bump, err := vault.DeriveVaultAddress(ledger.NewDeriver(1), cfg.Ledger.ProgramID, pub)
	if err != nil {
		return nil, err
	}
	return &outputKey{PublicKey: pub.Hex(), Vault: addr.String(), Bump: bump}, nil
}

func printKey(ctx *cli.Context, out *outputKey) error {
	if ctx.Bool(jsonFlag.Name) {
		return printJSON(ctx.App.Writer, out)
	}
	w := ctx.App.Writer
	fmt.Fprintln(w, "Public key: ", out.PublicKey)
	fmt.Fprintln(w, "Vault:      ", out.Vault)
	fmt.Fprintln(w, "Bump:       ", out.Bump)
	if out.PrivateKey != "" {
		fmt.Fprintln(w, "Private key:", out.PrivateKey)
	}
	return nil
}

func loadRawPrivateKey(file string) (*ecdsa.PrivateKey, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("can't load private key: %w", err)
	}
	raw, err := common.FromHex(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, fmt.Errorf("can't load private key: %w", err)
	}
	return p256.ToECDSA(raw)
}
