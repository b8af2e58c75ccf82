package secp256r1

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

// Record produced by the reference client for a one-signature withdrawal.
var (
	vectorPubkey    = []byte{3, 172, 70, 103, 66, 57, 25, 154, 9, 234, 221, 115, 82, 145, 195, 243, 193, 169, 97, 224, 172, 8, 188, 113, 47, 145, 65, 157, 47, 247, 55, 93, 167}
	vectorMessage   = []byte{192, 137, 34, 197, 88, 144, 3, 148, 41, 206, 133, 146, 18, 235, 53, 113, 123, 240, 28, 197, 208, 115, 116, 208, 56, 16, 103, 77, 97, 184, 232, 128, 81, 126, 135, 224, 1, 0, 0, 0}
	vectorSignature = []byte{19, 247, 209, 135, 92, 230, 15, 129, 117, 242, 57, 135, 118, 128, 185, 85, 71, 92, 58, 14, 208, 165, 21, 11, 40, 249, 133, 100, 198, 80, 36, 124, 118, 93, 56, 53, 234, 243, 187, 196, 171, 24, 97, 201, 64, 166, 82, 84, 223, 37, 40, 224, 63, 103, 226, 60, 149, 179, 129, 20, 42, 6, 77, 24}
	vectorHeader    = []byte{0x01, 0x00, 0x31, 0x00, 0xff, 0xff, 0x10, 0x00, 0xff, 0xff, 0x71, 0x00, 0x28, 0x00, 0xff, 0xff}
)

func vectorRecord() []byte {
	var out []byte
	out = append(out, vectorHeader...)
	out = append(out, vectorPubkey...)
	out = append(out, vectorSignature...)
	out = append(out, vectorMessage...)
	return out
}

func TestBuilderMatchesReferenceLayout(t *testing.T) {
	pub, err := common.BytesToSecp256r1Pubkey(vectorPubkey)
	if err != nil {
		t.Fatal(err)
	}
	var sig [params.Secp256r1SignatureLength]byte
	copy(sig[:], vectorSignature)

	data, err := NewInstructionData(pub, sig, vectorMessage)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if want := vectorRecord(); !bytes.Equal(data, want) {
		t.Fatalf("layout mismatch:\nhave %x\nwant %x", data, want)
	}
	if len(data) != 153 {
		t.Fatalf("want 153 bytes, got %d", len(data))
	}
}

func TestParseReferenceRecord(t *testing.T) {
	rec, err := Parse(vectorRecord())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.NumSignatures != 1 {
		t.Fatalf("want 1 signature, got %d", rec.NumSignatures)
	}
	want := Offsets{
		SignatureOffset:           49,
		SignatureInstructionIndex: CurrentInstruction,
		PublicKeyOffset:           16,
		PublicKeyInstructionIndex: CurrentInstruction,
		MessageDataOffset:         113,
		MessageDataSize:           40,
		MessageInstructionIndex:   CurrentInstruction,
	}
	if rec.Offsets[0] != want {
		t.Fatalf("offsets mismatch: have %+v want %+v", rec.Offsets[0], want)
	}
	f, err := rec.Fields(0)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if !bytes.Equal(f.Signer[:], vectorPubkey) || !bytes.Equal(f.Signature[:], vectorSignature) || !bytes.Equal(f.Message, vectorMessage) {
		t.Fatalf("field mismatch")
	}
	payer := common.BytesToAddress(f.Message[:32])
	if payer.String() != "DxaZaBY5JFzjHfFHrVYvvBC9qpoMM72N57xHHQv7waKR" {
		t.Fatalf("unexpected payer %s", payer)
	}
	if _, err := rec.Fields(1); !errors.Is(err, ErrSignatureIndex) {
		t.Fatalf("want ErrSignatureIndex, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(nil); !errors.Is(err, ErrRecordTooShort) {
		t.Fatalf("nil: want ErrRecordTooShort, got %v", err)
	}
	if _, err := Parse([]byte{2, 0, 1, 2, 3}); !errors.Is(err, ErrRecordTooShort) {
		t.Fatalf("truncated offsets: want ErrRecordTooShort, got %v", err)
	}
	rec, err := Parse([]byte{0, 0})
	if err != nil || rec.NumSignatures != 0 {
		t.Fatalf("empty record should parse, got %v", err)
	}

	// Message running past the end of the data.
	data := vectorRecord()
	data[12] = 0xff
	rec, err = Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := rec.Message(0); !errors.Is(err, ErrOffsetOutOfBounds) {
		t.Fatalf("want ErrOffsetOutOfBounds, got %v", err)
	}

	// Public key taken from a different instruction.
	data = vectorRecord()
	data[8], data[9] = 0x00, 0x00
	rec, _ = Parse(data)
	if _, err := rec.Signer(0); !errors.Is(err, ErrForeignInstruction) {
		t.Fatalf("want ErrForeignInstruction, got %v", err)
	}
}

func TestFromInstructionChecksProgram(t *testing.T) {
	ix := &program.Instruction{ProgramID: params.VaultProgramID, Data: vectorRecord()}
	if _, err := FromInstruction(ix); !errors.Is(err, ErrWrongProgram) {
		t.Fatalf("want ErrWrongProgram, got %v", err)
	}
	ix.ProgramID = params.Secp256r1ProgramID
	if _, err := FromInstruction(ix); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := FromInstruction(nil); err == nil {
		t.Fatalf("expected error for nil instruction")
	}
}

func TestSignInstructionVerifies(t *testing.T) {
	key, err := p256.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, params.AuthorizationMessageLength)
	copy(msg, vectorMessage)

	ix, err := SignInstruction(key, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if ix.ProgramID != params.Secp256r1ProgramID || len(ix.Accounts) != 0 {
		t.Fatalf("unexpected instruction shape %+v", ix)
	}
	if err := Verify(ix.Data); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if n := (Precompile{}).SignatureCount(ix.Data); n != 1 {
		t.Fatalf("want 1 signature, got %d", n)
	}

	rec, _ := Parse(ix.Data)
	if _, err := (CheckingVerifier{}).VerifyAndExpose(rec); err != nil {
		t.Fatalf("checking verifier: %v", err)
	}

	// Flip one message byte.
	tampered := common.CopyBytes(ix.Data)
	tampered[len(tampered)-1] ^= 0x01
	if err := Verify(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
	rec, _ = Parse(tampered)
	if _, err := (CheckingVerifier{}).VerifyAndExpose(rec); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("checking verifier: want ErrInvalidSignature, got %v", err)
	}
	if _, err := (TrustedVerifier{}).VerifyAndExpose(rec); err != nil {
		t.Fatalf("trusted verifier should not re-check: %v", err)
	}
}

func TestVerifyRejectsSignatureCount(t *testing.T) {
	if err := Verify([]byte{0, 0}); !errors.Is(err, ErrInvalidSignatureCount) {
		t.Fatalf("zero signatures: want ErrInvalidSignatureCount, got %v", err)
	}
	data := make([]byte, params.Secp256r1OffsetsStart+9*params.Secp256r1OffsetsLength)
	data[0] = 9
	if err := Verify(data); !errors.Is(err, ErrInvalidSignatureCount) {
		t.Fatalf("nine signatures: want ErrInvalidSignatureCount, got %v", err)
	}
}

func TestSignatureCountMalformed(t *testing.T) {
	if n := SignatureCount(vectorRecord()); n != 1 {
		t.Fatalf("reference record: want 1 signature, got %d", n)
	}
	for _, data := range [][]byte{nil, {0xff}, {2, 0, 1}} {
		if n := SignatureCount(data); n != 0 {
			t.Fatalf("%x: want 0 signatures, got %d", data, n)
		}
	}
}

func TestPrecompileRegistered(t *testing.T) {
	p, ok := program.DefaultRegistry.Lookup(params.Secp256r1ProgramID)
	if !ok {
		t.Fatalf("precompile not registered")
	}
	if _, ok := p.(program.Precompile); !ok {
		t.Fatalf("registered program does not implement program.Precompile")
	}
}

func FuzzParseNoPanic(f *testing.F) {
	f.Add(vectorRecord())
	f.Add([]byte{1, 0})
	f.Add([]byte{8})
	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Parse(data)
		if err != nil {
			return
		}
		for i := 0; i < int(rec.NumSignatures); i++ {
			rec.Fields(i)
		}
		Verify(data)
	})
}
