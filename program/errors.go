package program

import "errors"

// Standard failures reported by host collaborators.
var (
	ErrInvalidSeeds             = errors.New("program: seeds do not produce a valid program address")
	ErrMaxSeedLengthExceeded    = errors.New("program: seed too long")
	ErrInsufficientFunds        = errors.New("program: insufficient funds")
	ErrMissingRequiredSignature = errors.New("program: missing required signature")
	ErrInvalidAccountOwner      = errors.New("program: invalid account owner")
	ErrInvalidAccountData       = errors.New("program: invalid account data")
	ErrReadonlyAccount          = errors.New("program: account is not writable")
	ErrInstructionOutOfRange    = errors.New("program: sibling instruction out of range")
	ErrUnknownProgram           = errors.New("program: unknown program")
	ErrProgramRegistered        = errors.New("program: program already registered")
)
