package vault

import "errors"

// Every failure aborts the enclosing batch. Detail is attached with %w so
// callers match on the sentinel with errors.Is.
var (
	ErrAccountCount              = errors.New("vault: wrong number of accounts")
	ErrAccountOwnership          = errors.New("vault: account has unexpected owner")
	ErrAccountState              = errors.New("vault: account state violates precondition")
	ErrInstructionDataLength     = errors.New("vault: invalid instruction data length")
	ErrAddressDerivationMismatch = errors.New("vault: vault address does not match derived address")
	ErrSignatureRecord           = errors.New("vault: missing or malformed signature record")
	ErrSignatureCount            = errors.New("vault: signature record must carry exactly one signature")
	ErrPayerMismatch             = errors.New("vault: authorization was issued for another payer")
	ErrExpiredAuthorization      = errors.New("vault: authorization expired")
	ErrInvalidInstruction        = errors.New("vault: invalid instruction")
)

// errorCodes lists the custom program error codes in code order.
var errorCodes = []error{
	ErrAccountCount,
	ErrAccountOwnership,
	ErrAccountState,
	ErrInstructionDataLength,
	ErrAddressDerivationMismatch,
	ErrSignatureRecord,
	ErrSignatureCount,
	ErrPayerMismatch,
	ErrExpiredAuthorization,
	ErrInvalidInstruction,
}

// ErrorCode maps a vault failure to its stable custom error code.
func ErrorCode(err error) (uint32, bool) {
	for code, sentinel := range errorCodes {
		if errors.Is(err, sentinel) {
			return uint32(code), true
		}
	}
	return 0, false
}
