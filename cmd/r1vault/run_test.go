package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/r1vault/ledger"
	"github.com/tos-network/r1vault/params"
)

const testPayer = "DxaZaBY5JFzjHfFHrVYvvBC9qpoMM72N57xHHQv7waKR"

// runR1vault runs the app in-process against datadir and returns its output.
func runR1vault(t *testing.T, datadir string, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	var out bytes.Buffer
	a.Writer, a.ErrWriter = &out, &out
	argv := append([]string{"r1vault", "--datadir", datadir, "--verbosity", "0"}, args...)
	err := a.Run(argv)
	return out.String(), err
}

func mustRun(t *testing.T, datadir string, args ...string) string {
	t.Helper()
	out, err := runR1vault(t, datadir, args...)
	if err != nil {
		t.Fatalf("r1vault %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestKeygenAndInspect(t *testing.T) {
	datadir := t.TempDir()
	keyfile := filepath.Join(datadir, "keys", "owner.json")

	out := mustRun(t, datadir, "keygen", keyfile)
	require.Regexp(t, regexp.MustCompile(`Public key:  0x0[23][0-9a-f]{64}\n`), out)
	require.Regexp(t, regexp.MustCompile(`Vault:\s+[1-9A-HJ-NP-Za-km-z]{32,44}\n`), out)

	// Keyfiles are never overwritten.
	_, err := runR1vault(t, datadir, "keygen", keyfile)
	require.ErrorContains(t, err, "already exists")

	out = mustRun(t, datadir, "inspect", "--json", "--private", keyfile)
	var key outputKey
	require.NoError(t, json.Unmarshal([]byte(out), &key))
	require.Len(t, key.PrivateKey, 64)

	derived := mustRun(t, datadir, "derive", "--json", key.PublicKey)
	var again outputKey
	require.NoError(t, json.Unmarshal([]byte(derived), &again))
	require.Equal(t, key.Vault, again.Vault)
	require.Equal(t, key.Bump, again.Bump)
}

func TestEncode(t *testing.T) {
	datadir := t.TempDir()
	pub := "0x02" + strings.Repeat("ab", 32)

	out := mustRun(t, datadir, "encode", "deposit", "--pubkey", pub, "--amount", "1")
	want := "0002" + strings.Repeat("ab", 32) + "00ca9a3b00000000"
	require.Equal(t, want, strings.TrimSpace(out))

	out = mustRun(t, datadir, "encode", "withdraw", "--bump", "254")
	require.Equal(t, "01fe", strings.TrimSpace(out))

	keyfile := filepath.Join(datadir, "owner.json")
	mustRun(t, datadir, "keygen", keyfile)
	out = mustRun(t, datadir, "encode", "record", "--keyfile", keyfile, "--payer", testPayer, "--expiry.unix", "8061939281")
	require.Len(t, strings.TrimSpace(out), 2*153)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "516e87e001000000"), out)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	for _, engine := range []string{"leveldb", "bolt"} {
		t.Run(engine, func(t *testing.T) {
			datadir := t.TempDir()
			keyfile := filepath.Join(datadir, "owner.json")
			run := func(args ...string) string {
				return mustRun(t, datadir, append([]string{"--db.engine", engine}, args...)...)
			}
			run("keygen", keyfile)

			require.Contains(t, run("airdrop", "--amount", "10", testPayer), testPayer+": 10 SOL")

			out := run("deposit", "--keyfile", keyfile, "--payer", testPayer, "--amount", "1")
			require.Contains(t, out, "Success:  true")
			require.Contains(t, out, "Fee:      0.000005 SOL")

			require.Contains(t, run("balance", "--keyfile", keyfile), ": 1 SOL")
			require.Contains(t, run("balance", testPayer), ": 8.999995 SOL")

			out = run("withdraw", "--json", "--keyfile", keyfile, "--payer", testPayer)
			var receipt ledger.Receipt
			require.NoError(t, json.Unmarshal([]byte(out), &receipt))
			require.True(t, receipt.Success)
			require.Equal(t, uint64(2*params.DefaultRuntimeConfig.LamportsPerSignature), receipt.Fee)

			require.Contains(t, run("balance", "--keyfile", keyfile), ": 0 SOL")
			require.Contains(t, run("balance", testPayer), ": 9.999985 SOL")

			stored := run("receipt", "--json", receipt.Hash.Hex())
			require.JSONEq(t, out, stored)
		})
	}
}

func TestWithdrawExpired(t *testing.T) {
	datadir := t.TempDir()
	keyfile := filepath.Join(datadir, "owner.json")
	mustRun(t, datadir, "keygen", keyfile)
	mustRun(t, datadir, "airdrop", "--amount", "2", testPayer)
	mustRun(t, datadir, "deposit", "--keyfile", keyfile, "--payer", testPayer, "--amount", "1")

	out, err := runR1vault(t, datadir, "withdraw", "--keyfile", keyfile, "--payer", testPayer, "--expiry.unix", "1")
	require.ErrorContains(t, err, "authorization expired")
	require.Contains(t, out, "Code:     8")
	require.Contains(t, mustRun(t, datadir, "balance", "--keyfile", keyfile), ": 1 SOL")
}

func TestCustomProgramID(t *testing.T) {
	datadir := t.TempDir()
	keyfile := filepath.Join(datadir, "owner.json")
	mustRun(t, datadir, "keygen", keyfile)

	const custom = "Vau1t11111111111111111111111111111111111111"
	def := mustRun(t, datadir, "derive", "--keyfile", keyfile)
	other := mustRun(t, datadir, "--program", custom, "derive", "--keyfile", keyfile)
	require.NotEqual(t, def, other)

	mustRun(t, datadir, "airdrop", "--amount", "2", testPayer)
	out := mustRun(t, datadir, "--program", custom, "deposit", "--keyfile", keyfile, "--payer", testPayer, "--amount", "1")
	require.Contains(t, out, "Success:  true")
}
