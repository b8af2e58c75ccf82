package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/ledger"
	"github.com/tos-network/r1vault/log"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
	"github.com/tos-network/r1vault/vault"
	"github.com/urfave/cli/v2"
)

var (
	expiryFlag = &cli.DurationFlag{
		Name:  "expiry",
		Usage: "how long the withdrawal authorization stays valid",
		Value: 5 * time.Minute,
	}
	expiryUnixFlag = &cli.Int64Flag{
		Name:  "expiry.unix",
		Usage: "absolute expiry of the authorization as a unix timestamp (overrides --expiry)",
	}
	bumpFlag = &cli.IntFlag{
		Name:  "bump",
		Usage: "vault bump seed (derived from the public key when omitted)",
		Value: -1,
	}
)

var commandDerive = &cli.Command{
	Name:      "derive",
	Usage:     "derive the vault address of a public key",
	ArgsUsage: "[ <pubkey> ]",
	Flags:     []cli.Flag{jsonFlag, keyfileFlag, pubkeyFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		pub, err := resolvePubkey(ctx, ctx.Args().First())
		if err != nil {
			return err
		}
		out, err := describeKey(&cfg, pub)
		if err != nil {
			return err
		}
		return printKey(ctx, out)
	},
}

var commandEncode = &cli.Command{
	Name:  "encode",
	Usage: "print hex encoded instruction data",
	Subcommands: []*cli.Command{
		{
			Name:  "deposit",
			Usage: "encode a deposit request",
			Flags: []cli.Flag{keyfileFlag, pubkeyFlag, amountFlag},
			Action: func(ctx *cli.Context) error {
				pub, err := resolvePubkey(ctx, "")
				if err != nil {
					return err
				}
				amount, err := parseSOL(ctx.String(amountFlag.Name))
				if err != nil {
					return err
				}
				fmt.Fprintln(ctx.App.Writer, common.Bytes2Hex((&vault.DepositRequest{Pubkey: pub, Amount: amount}).Encode()))
				return nil
			},
		},
		{
			Name:  "withdraw",
			Usage: "encode a withdraw request",
			Flags: []cli.Flag{keyfileFlag, pubkeyFlag, bumpFlag},
			Action: func(ctx *cli.Context) error {
				cfg, err := makeConfig(ctx)
				if err != nil {
					return err
				}
				bump, err := resolveBump(ctx, &cfg)
				if err != nil {
					return err
				}
				fmt.Fprintln(ctx.App.Writer, common.Bytes2Hex((&vault.WithdrawRequest{Bump: bump}).Encode()))
				return nil
			},
		},
		{
			Name:  "record",
			Usage: "sign a withdrawal authorization and encode the secp256r1 record",
			Flags: []cli.Flag{keyfileFlag, payerFlag, expiryFlag, expiryUnixFlag},
			Action: func(ctx *cli.Context) error {
				ix, _, err := signAuthorization(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(ctx.App.Writer, common.Bytes2Hex(ix.Data))
				return nil
			},
		},
	},
}

var commandAirdrop = &cli.Command{
	Name:      "airdrop",
	Usage:     "credit lamports to an account of the simulated ledger",
	ArgsUsage: "<address>",
	Flags:     []cli.Flag{amountFlag},
	Action: func(ctx *cli.Context) error {
		addr, err := common.Base58ToAddress(ctx.Args().First())
		if err != nil {
			return err
		}
		amount, err := parseSOL(ctx.String(amountFlag.Name))
		if err != nil {
			return err
		}
		return withLedger(ctx, func(l *ledger.Ledger, cfg *r1vaultConfig) error {
			if err := l.Airdrop(addr, amount); err != nil {
				return err
			}
			bal, err := l.Balance(addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%s: %s\n", addr, formatSOL(bal))
			return nil
		})
	},
}

var commandDeposit = &cli.Command{
	Name:  "deposit",
	Usage: "deposit into the vault of a public key",
	Flags: []cli.Flag{jsonFlag, keyfileFlag, pubkeyFlag, payerFlag, amountFlag},
	Action: func(ctx *cli.Context) error {
		pub, err := resolvePubkey(ctx, "")
		if err != nil {
			return err
		}
		payer, err := common.Base58ToAddress(ctx.String(payerFlag.Name))
		if err != nil {
			return err
		}
		amount, err := parseSOL(ctx.String(amountFlag.Name))
		if err != nil {
			return err
		}
		return withLedger(ctx, func(l *ledger.Ledger, cfg *r1vaultConfig) error {
			addr, _, err := vault.DeriveVaultAddress(l.Deriver(), cfg.Ledger.ProgramID, pub)
			if err != nil {
				return err
			}
			ix := vault.NewDepositInstruction(payer, addr, pub, amount)
			ix.ProgramID = cfg.Ledger.ProgramID
			return execute(ctx, l, ledger.NewBatch(payer, ix))
		})
	},
}

var commandWithdraw = &cli.Command{
	Name:  "withdraw",
	Usage: "drain a vault into the payer with a freshly signed authorization",
	Flags: []cli.Flag{jsonFlag, keyfileFlag, payerFlag, expiryFlag, expiryUnixFlag},
	Action: func(ctx *cli.Context) error {
		record, payer, err := signAuthorization(ctx)
		if err != nil {
			return err
		}
		pub, err := resolvePubkey(ctx, "")
		if err != nil {
			return err
		}
		return withLedger(ctx, func(l *ledger.Ledger, cfg *r1vaultConfig) error {
			addr, bump, err := vault.DeriveVaultAddress(l.Deriver(), cfg.Ledger.ProgramID, pub)
			if err != nil {
				return err
			}
			ix := vault.NewWithdrawInstruction(payer, addr, bump)
			ix.ProgramID = cfg.Ledger.ProgramID
			return execute(ctx, l, ledger.NewBatch(payer, ix, record))
		})
	},
}

var commandBalance = &cli.Command{
	Name:      "balance",
	Usage:     "print the balance of an address, or of the vault of a key",
	ArgsUsage: "[ <address> ]",
	Flags:     []cli.Flag{keyfileFlag, pubkeyFlag},
	Action: func(ctx *cli.Context) error {
		return withLedger(ctx, func(l *ledger.Ledger, cfg *r1vaultConfig) error {
			var addr common.Address
			if arg := ctx.Args().First(); arg != "" {
				parsed, err := common.Base58ToAddress(arg)
				if err != nil {
					return err
				}
				addr = parsed
			} else {
				pub, err := resolvePubkey(ctx, "")
				if err != nil {
					return err
				}
				if addr, _, err = vault.DeriveVaultAddress(l.Deriver(), cfg.Ledger.ProgramID, pub); err != nil {
					return err
				}
			}
			bal, err := l.Balance(addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%s: %s\n", addr, formatSOL(bal))
			return nil
		})
	},
}

var commandReceipt = &cli.Command{
	Name:      "receipt",
	Usage:     "print the receipt of an executed batch",
	ArgsUsage: "<hash>",
	Flags:     []cli.Flag{jsonFlag},
	Action: func(ctx *cli.Context) error {
		var hash common.Hash
		if err := hash.UnmarshalText([]byte(ctx.Args().First())); err != nil {
			return err
		}
		return withLedger(ctx, func(l *ledger.Ledger, cfg *r1vaultConfig) error {
			receipt, err := l.Receipt(hash)
			if err != nil {
				return err
			}
			return printReceipt(ctx, receipt)
		})
	},
}

// resolvePubkey picks the vault key from an argument, --pubkey or --keyfile,
// in that order.
func resolvePubkey(ctx *cli.Context, arg string) (common.Secp256r1Pubkey, error) {
	if arg == "" {
		arg = ctx.String(pubkeyFlag.Name)
	}
	if arg != "" {
		return common.HexToSecp256r1Pubkey(arg)
	}
	priv, err := loadKeyfile(ctx.String(keyfileFlag.Name))
	if err != nil {
		return common.Secp256r1Pubkey{}, err
	}
	return p256.CompressPubkey(&priv.PublicKey), nil
}

func resolveBump(ctx *cli.Context, cfg *r1vaultConfig) (uint8, error) {
	if b := ctx.Int(bumpFlag.Name); b >= 0 {
		if b > 255 {
			return 0, fmt.Errorf("bump %d out of range", b)
		}
		return uint8(b), nil
	}
	pub, err := resolvePubkey(ctx, "")
	if err != nil {
		return 0, err
	}
	out, err := describeKey(cfg, pub)
	if err != nil {
		return 0, err
	}
	return out.Bump, nil
}

// signAuthorization signs payer || expiry with the keyfile and returns the
// secp256r1 record instruction.
func signAuthorization(ctx *cli.Context) (*program.Instruction, common.Address, error) {
	payer, err := common.Base58ToAddress(ctx.String(payerFlag.Name))
	if err != nil {
		return nil, common.Address{}, err
	}
	priv, err := loadKeyfile(ctx.String(keyfileFlag.Name))
	if err != nil {
		return nil, common.Address{}, err
	}
	expiry := params.ExpiryAfter(time.Now(), ctx.Duration(expiryFlag.Name))
	if ctx.IsSet(expiryUnixFlag.Name) {
		expiry = ctx.Int64(expiryUnixFlag.Name)
	}
	log.Debug("Signing withdrawal authorization", "payer", payer, "expiry", params.UnixTimestampToTime(expiry))
	ix, err := secp256r1.SignInstruction(priv, vault.NewAuthorizationMessage(payer, expiry))
	if err != nil {
		return nil, common.Address{}, err
	}
	return ix, payer, nil
}

// withLedger opens the configured ledger for the duration of fn.
func withLedger(ctx *cli.Context, fn func(l *ledger.Ledger, cfg *r1vaultConfig) error) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	l, db, err := openLedger(&cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(l, &cfg)
}

// execute runs b and prints its receipt. Failed batches print their receipt
// before the error is returned.
func execute(ctx *cli.Context, l *ledger.Ledger, b *ledger.Batch) error {
	receipt, err := l.Execute(b)
	if receipt == nil {
		return err
	}
	if perr := printReceipt(ctx, receipt); perr != nil {
		return perr
	}
	if err != nil {
		return errors.New("batch failed: " + err.Error())
	}
	return nil
}

func printReceipt(ctx *cli.Context, r *ledger.Receipt) error {
	if ctx.Bool(jsonFlag.Name) {
		return printJSON(ctx.App.Writer, r)
	}
	w := ctx.App.Writer
	fmt.Fprintln(w, "Batch:   ", r.Hash.Hex())
	fmt.Fprintln(w, "Sequence:", r.Sequence)
	fmt.Fprintln(w, "Fee:     ", formatSOL(r.Fee))
	fmt.Fprintln(w, "Success: ", r.Success)
	if r.Err != "" {
		fmt.Fprintln(w, "Error:   ", r.Err)
	}
	if r.Code != nil {
		fmt.Fprintln(w, "Code:    ", *r.Code)
	}
	for _, line := range r.Logs {
		fmt.Fprintln(w, "Log:     ", line)
	}
	return nil
}
