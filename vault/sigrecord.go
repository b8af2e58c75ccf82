package vault

import (
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
)

// SignatureVerifier checks a secp256r1 record and exposes what its first
// signature attests to. The vault trusts its output completely.
type SignatureVerifier interface {
	VerifyAndExpose(rec *secp256r1.Record) (*secp256r1.SignedFields, error)
}

// authorization is a verified withdrawal permit.
type authorization struct {
	signer common.Secp256r1Pubkey
	AuthorizationMessage
}

// readAuthorization loads the signature record that must directly follow the
// current instruction in the batch.
func readAuthorization(ctx *program.Context, verifier SignatureVerifier) (*authorization, error) {
	if ctx.Batch == nil {
		return nil, fmt.Errorf("%w: batch context unavailable", ErrSignatureRecord)
	}
	ix, err := ctx.Batch.SiblingInstruction(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecord, err)
	}
	// The count is judged before the offsets table is, so a record claiming
	// several signatures reports the count even when it is truncated.
	if ix != nil && ix.ProgramID == params.Secp256r1ProgramID && len(ix.Data) > 0 && ix.Data[0] != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSignatureCount, ix.Data[0])
	}
	rec, err := secp256r1.FromInstruction(ix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecord, err)
	}
	fields, err := verifier.VerifyAndExpose(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecord, err)
	}
	msg, err := DecodeAuthorizationMessage(fields.Message)
	if err != nil {
		return nil, err
	}
	return &authorization{signer: fields.Signer, AuthorizationMessage: *msg}, nil
}
