package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
)

var (
	payerKey = common.MustBase58ToAddress("DxaZaBY5JFzjHfFHrVYvvBC9qpoMM72N57xHHQv7waKR")
	ownerKey = testPubkey(0x11)
)

func depositData(pub common.Secp256r1Pubkey, amount uint64) []byte {
	return (&DepositRequest{Pubkey: pub, Amount: amount}).Encode()
}

func TestDeposit(t *testing.T) {
	e := newEnv()
	payer := systemAccount(payerKey, 10*params.LamportsPerSOL, true)
	vault := systemAccount(vaultAddress(ownerKey), 0, false)
	ctx := e.context(payer, vault, builtinAccount(params.SystemProgramID))

	if err := e.prog.Process(ctx, depositData(ownerKey, params.LamportsPerSOL)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if vault.Lamports != params.LamportsPerSOL {
		t.Fatalf("vault balance: have %d want %d", vault.Lamports, params.LamportsPerSOL)
	}
	if payer.Lamports != 9*params.LamportsPerSOL {
		t.Fatalf("payer balance: have %d want %d", payer.Lamports, 9*params.LamportsPerSOL)
	}
}

func TestDepositRejections(t *testing.T) {
	vaultKey := vaultAddress(ownerKey)
	tests := []struct {
		name   string
		mutate func(payer, vault, system *program.AccountInfo) []*program.AccountInfo
		data   []byte
		want   error
	}{
		{
			name: "too few accounts",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				return []*program.AccountInfo{payer, vault}
			},
			want: ErrAccountCount,
		},
		{
			name: "payer not signer",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				payer.IsSigner = false
				return []*program.AccountInfo{payer, vault, system}
			},
			want: ErrAccountState,
		},
		{
			name: "payer not system owned",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				payer.Owner = params.VaultProgramID
				return []*program.AccountInfo{payer, vault, system}
			},
			want: ErrAccountOwnership,
		},
		{
			name: "payer empty",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				payer.Lamports = 0
				return []*program.AccountInfo{payer, vault, system}
			},
			want: ErrAccountState,
		},
		{
			name: "vault already funded",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				vault.Lamports = 1
				return []*program.AccountInfo{payer, vault, system}
			},
			want: ErrAccountState,
		},
		{
			name: "vault not system owned",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				vault.Owner = params.VaultProgramID
				return []*program.AccountInfo{payer, vault, system}
			},
			want: ErrAccountOwnership,
		},
		{
			name: "third account not system program",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				return []*program.AccountInfo{payer, vault, builtinAccount(params.InstructionsSysvarID)}
			},
			want: ErrAccountOwnership,
		},
		{
			name: "short body",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				return []*program.AccountInfo{payer, vault, system}
			},
			data: depositData(ownerKey, 1)[:41],
			want: ErrInstructionDataLength,
		},
		{
			name: "long body",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				return []*program.AccountInfo{payer, vault, system}
			},
			data: append(depositData(ownerKey, 1), 0),
			want: ErrInstructionDataLength,
		},
		{
			name: "vault of another key",
			mutate: func(payer, vault, system *program.AccountInfo) []*program.AccountInfo {
				return []*program.AccountInfo{payer, vault, system}
			},
			data: depositData(testPubkey(0x22), 1),
			want: ErrAddressDerivationMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			payer := systemAccount(payerKey, params.LamportsPerSOL, true)
			vault := systemAccount(vaultKey, 0, false)
			accounts := tt.mutate(payer, vault, builtinAccount(params.SystemProgramID))
			data := tt.data
			if data == nil {
				data = depositData(ownerKey, 1000)
			}
			err := e.prog.Process(e.context(accounts...), data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if e.bank.transfers != 0 {
				t.Fatalf("rejected deposit moved funds")
			}
		})
	}
}

func withdrawSetup(vaultLamports uint64) (*env, *program.AccountInfo, *program.AccountInfo, []*program.AccountInfo) {
	e := newEnv()
	payer := systemAccount(payerKey, 10*params.LamportsPerSOL, true)
	vault := systemAccount(vaultAddress(ownerKey), vaultLamports, false)
	accounts := []*program.AccountInfo{
		payer,
		vault,
		builtinAccount(params.InstructionsSysvarID),
		builtinAccount(params.SystemProgramID),
	}
	return e, payer, vault, accounts
}

func TestWithdraw(t *testing.T) {
	e, payer, vault, accounts := withdrawSetup(params.LamportsPerSOL)
	e.withAuthorization(ownerKey, NewAuthorizationMessage(payerKey, e.clock.now+60))

	if err := e.prog.Process(e.context(accounts...), (&WithdrawRequest{Bump: 255}).Encode()); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if vault.Lamports != 0 {
		t.Fatalf("vault not drained: %d", vault.Lamports)
	}
	if payer.Lamports != 11*params.LamportsPerSOL {
		t.Fatalf("payer balance: have %d want %d", payer.Lamports, 11*params.LamportsPerSOL)
	}
}

func TestWithdrawAtExpirySecond(t *testing.T) {
	e, _, vault, accounts := withdrawSetup(5)
	e.withAuthorization(ownerKey, NewAuthorizationMessage(payerKey, e.clock.now))
	if err := e.prog.Process(e.context(accounts...), []byte{byte(TagWithdraw), 255}); err != nil {
		t.Fatalf("withdraw at expiry second failed: %v", err)
	}
	if vault.Lamports != 0 {
		t.Fatalf("vault not drained")
	}
}

func TestWithdrawRejections(t *testing.T) {
	now := newEnv().clock.now
	valid := NewAuthorizationMessage(payerKey, now+60)

	tests := []struct {
		name    string
		setup   func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo
		bump    uint8
		data    []byte
		want    error
		wantAny bool
	}{
		{
			name: "three accounts",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				return accounts[:3]
			},
			want: ErrAccountCount,
		},
		{
			name: "empty vault",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				accounts[1].Lamports = 0
				return accounts
			},
			want: ErrAccountState,
		},
		{
			name: "vault owned by program",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				accounts[1].Owner = params.VaultProgramID
				return accounts
			},
			want: ErrAccountOwnership,
		},
		{
			name: "wrong batch context account",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				accounts[2] = builtinAccount(params.ClockSysvarID)
				return accounts
			},
			want: ErrAccountOwnership,
		},
		{
			name: "wrong system account",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				accounts[3] = builtinAccount(params.RentSysvarID)
				return accounts
			},
			want: ErrAccountOwnership,
		},
		{
			name: "bad body",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				return accounts
			},
			data: []byte{byte(TagWithdraw), 255, 0},
			want: ErrInstructionDataLength,
		},
		{
			name: "no sibling record",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				return accounts
			},
			want: ErrSignatureRecord,
		},
		{
			name: "sibling not secp256r1",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				e.batch.siblings[1].ProgramID = params.VaultProgramID
				return accounts
			},
			want: ErrSignatureRecord,
		},
		{
			name: "record before instead of after",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				e.batch.siblings[-1] = e.batch.siblings[1]
				delete(e.batch.siblings, 1)
				return accounts
			},
			want: ErrSignatureRecord,
		},
		{
			name: "two signatures",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				rec := e.batch.siblings[1]
				rec.Data = append([]byte{2, 0}, rec.Data[2:]...)
				rec.Data = append(rec.Data[:16], append(make([]byte, params.Secp256r1OffsetsLength), rec.Data[16:]...)...)
				return accounts
			},
			want: ErrSignatureCount,
		},
		{
			name: "two signatures truncated",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				e.batch.siblings[1].Data = []byte{2, 0}
				return accounts
			},
			want: ErrSignatureCount,
		},
		{
			name: "zero signatures",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				e.batch.siblings[1].Data[0] = 0
				return accounts
			},
			want: ErrSignatureCount,
		},
		{
			name: "short message",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid[:39])
				return accounts
			},
			want: ErrSignatureRecord,
		},
		{
			name: "other payer",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, NewAuthorizationMessage(common.Address{0x01}, now+60))
				return accounts
			},
			want: ErrPayerMismatch,
		},
		{
			name: "expired",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, NewAuthorizationMessage(payerKey, now-1))
				return accounts
			},
			want: ErrExpiredAuthorization,
		},
		{
			name: "signer of another vault",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(testPubkey(0x33), valid)
				return accounts
			},
			want: ErrAddressDerivationMismatch,
		},
		{
			name: "wrong bump",
			setup: func(e *env, accounts []*program.AccountInfo) []*program.AccountInfo {
				e.withAuthorization(ownerKey, valid)
				return accounts
			},
			bump: 254,
			want: ErrAddressDerivationMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _, accounts := withdrawSetup(params.LamportsPerSOL)
			accounts = tt.setup(e, accounts)
			data := tt.data
			if data == nil {
				bump := tt.bump
				if bump == 0 {
					bump = 255
				}
				data = (&WithdrawRequest{Bump: bump}).Encode()
			}
			err := e.prog.Process(e.context(accounts...), data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if e.bank.transfers != 0 {
				t.Fatalf("rejected withdrawal moved funds")
			}
		})
	}
}

func TestWithdrawClockFailure(t *testing.T) {
	e, _, _, accounts := withdrawSetup(1)
	e.withAuthorization(ownerKey, NewAuthorizationMessage(payerKey, 1))
	e.clock.err = errClock
	err := e.prog.Process(e.context(accounts...), []byte{byte(TagWithdraw), 255})
	if !errors.Is(err, errClock) {
		t.Fatalf("want clock error, got %v", err)
	}
}

func TestProcessUnknownTag(t *testing.T) {
	e := newEnv()
	for _, data := range [][]byte{nil, {2}, {0xff, 1, 2}} {
		if err := e.prog.Process(e.context(), data); !errors.Is(err, ErrInvalidInstruction) {
			t.Fatalf("data %x: want ErrInvalidInstruction, got %v", data, err)
		}
	}
}

func TestErrorCodes(t *testing.T) {
	seen := make(map[uint32]bool)
	for i, sentinel := range errorCodes {
		code, ok := ErrorCode(errors.Join(errors.New("context"), sentinel))
		if !ok || code != uint32(i) {
			t.Fatalf("%v: have code %d (%v), want %d", sentinel, code, ok, i)
		}
		seen[code] = true
	}
	if len(seen) != 10 {
		t.Fatalf("want 10 distinct codes, got %d", len(seen))
	}
	if _, ok := ErrorCode(program.ErrInsufficientFunds); ok {
		t.Fatalf("foreign error mapped to a vault code")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	req := &DepositRequest{Pubkey: ownerKey, Amount: 1_000_000_000}
	enc := req.Encode()
	if len(enc) != 42 || enc[0] != byte(TagDeposit) {
		t.Fatalf("bad deposit encoding %x", enc)
	}
	dec, err := DecodeDepositRequest(enc[1:])
	if err != nil || *dec != *req {
		t.Fatalf("deposit round trip: %+v %v", dec, err)
	}
	// amount is little endian right after the key
	if !bytes.Equal(enc[34:], []byte{0x00, 0xca, 0x9a, 0x3b, 0, 0, 0, 0}) {
		t.Fatalf("bad amount encoding %x", enc[34:])
	}

	msg := NewAuthorizationMessage(payerKey, 1)
	auth, err := DecodeAuthorizationMessage(msg)
	if err != nil || auth.Payer != payerKey || auth.Expiry != 1 {
		t.Fatalf("message round trip: %+v %v", auth, err)
	}
	neg, _ := DecodeAuthorizationMessage(NewAuthorizationMessage(payerKey, -5))
	if neg.Expiry != -5 {
		t.Fatalf("signed expiry lost: %d", neg.Expiry)
	}
}

func TestReferenceMessageLayout(t *testing.T) {
	// Message signed by the reference client.
	msg := []byte{192, 137, 34, 197, 88, 144, 3, 148, 41, 206, 133, 146, 18, 235, 53, 113, 123, 240, 28, 197, 208, 115, 116, 208, 56, 16, 103, 77, 97, 184, 232, 128, 81, 126, 135, 224, 1, 0, 0, 0}
	auth, err := DecodeAuthorizationMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if auth.Payer != payerKey {
		t.Fatalf("payer mismatch: %s", auth.Payer)
	}
	if auth.Expiry != 0x1e0877e51 {
		t.Fatalf("expiry mismatch: %d", auth.Expiry)
	}
}

func TestClientInstructions(t *testing.T) {
	vault := vaultAddress(ownerKey)
	dep := NewDepositInstruction(payerKey, vault, ownerKey, 7)
	if dep.ProgramID != params.VaultProgramID || len(dep.Accounts) != 3 {
		t.Fatalf("bad deposit instruction %+v", dep)
	}
	if !dep.Accounts[0].IsSigner || !dep.Accounts[0].IsWritable || !dep.Accounts[1].IsWritable || dep.Accounts[2].IsWritable {
		t.Fatalf("bad deposit metas %+v", dep.Accounts)
	}
	wd := NewWithdrawInstruction(payerKey, vault, 250)
	if len(wd.Accounts) != 4 || wd.Accounts[2].Address != params.InstructionsSysvarID || wd.Accounts[3].Address != params.SystemProgramID {
		t.Fatalf("bad withdraw metas %+v", wd.Accounts)
	}
	if !bytes.Equal(wd.Data, []byte{1, 250}) {
		t.Fatalf("bad withdraw data %x", wd.Data)
	}
}

func TestDefaultRegistration(t *testing.T) {
	p, ok := program.DefaultRegistry.Lookup(params.VaultProgramID)
	if !ok {
		t.Fatalf("vault program not registered")
	}
	if p.ID() != params.VaultProgramID {
		t.Fatalf("registered under wrong id")
	}
	reg := program.NewRegistry()
	if err := Register(reg, params.VaultProgramID, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg, params.VaultProgramID, nil); !errors.Is(err, program.ErrProgramRegistered) {
		t.Fatalf("want ErrProgramRegistered, got %v", err)
	}
}

func TestNilVerifierChecksSignatures(t *testing.T) {
	priv, err := p256.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := p256.CompressPubkey(&priv.PublicKey)

	reg := program.NewRegistry()
	if err := Register(reg, params.VaultProgramID, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, _ := reg.Lookup(params.VaultProgramID)

	e, payer, _, accounts := withdrawSetup(params.LamportsPerSOL)
	vault := systemAccount(vaultAddress(owner), params.LamportsPerSOL, false)
	accounts[1] = vault
	msg := NewAuthorizationMessage(payerKey, e.clock.now+60)
	data := (&WithdrawRequest{Bump: 255}).Encode()

	e.withAuthorization(owner, msg)
	if err := p.Execute(e.context(accounts...), data); !errors.Is(err, ErrSignatureRecord) {
		t.Fatalf("unsigned record: want ErrSignatureRecord, got %v", err)
	}
	if vault.Lamports != params.LamportsPerSOL {
		t.Fatalf("rejected withdrawal moved funds")
	}

	ix, err := secp256r1.SignInstruction(priv, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	e.batch.siblings[1] = ix
	if err := p.Execute(e.context(accounts...), data); err != nil {
		t.Fatalf("signed withdrawal failed: %v", err)
	}
	if vault.Lamports != 0 || payer.Lamports != 11*params.LamportsPerSOL {
		t.Fatalf("balances: vault %d payer %d", vault.Lamports, payer.Lamports)
	}
}

func FuzzProcessNoPanic(f *testing.F) {
	f.Add(depositData(ownerKey, 1), []byte{})
	f.Add([]byte{1, 255}, NewAuthorizationMessage(payerKey, 1<<40))
	f.Add([]byte{1}, []byte{1, 2, 3})
	f.Fuzz(func(t *testing.T, data, msg []byte) {
		if len(msg) > 0xff00 {
			return
		}
		e, _, _, accounts := withdrawSetup(1)
		e.withAuthorization(ownerKey, msg)
		e.prog.Process(e.context(accounts...), data)

		e2 := newEnv()
		payer := systemAccount(payerKey, 1, true)
		vault := systemAccount(vaultAddress(ownerKey), 0, false)
		e2.prog.Process(e2.context(payer, vault, builtinAccount(params.SystemProgramID)), data)
	})
}

func FuzzSignatureRecordNoPanic(f *testing.F) {
	f.Add([]byte{1, 0})
	f.Add([]byte{1, 0, 0x31, 0x00, 0xff, 0xff, 0x10, 0x00, 0xff, 0xff, 0x71, 0x00, 0x28, 0x00, 0xff, 0xff})
	f.Fuzz(func(t *testing.T, record []byte) {
		e, _, vault, accounts := withdrawSetup(1)
		e.batch.siblings[1] = &program.Instruction{ProgramID: params.Secp256r1ProgramID, Data: record}
		err := e.prog.Process(e.context(accounts...), []byte{1, 255})
		if err != nil && vault.Lamports != 1 {
			t.Fatalf("failed withdrawal changed vault balance")
		}
	})
}
