package params

const (
	// Instruction data sizes, excluding the one-byte tag.
	DepositRequestLength  = 41 // pubkey(33) || amount(8, LE)
	WithdrawRequestLength = 1  // bump(1)

	AuthorizationMessageLength = 40 // payer(32) || expiry(8, LE signed)

	Secp256r1PubkeyLength    = 33
	Secp256r1SignatureLength = 64

	// Secp256r1 precompile record layout.
	Secp256r1OffsetsStart       = 2  // num_signatures(1) || padding(1)
	Secp256r1OffsetsLength      = 14 // seven little-endian u16 fields
	Secp256r1MaxSignatures      = 8
	SignatureRecordHeaderLength = Secp256r1OffsetsStart + Secp256r1OffsetsLength

	// MaxSeedLength is the longest single seed the derivation primitive accepts.
	MaxSeedLength = 32
	// MaxSeeds is the largest number of seeds, bump included.
	MaxSeeds = 16

	// MaxAccountDataLength bounds account data handled by the rent oracle.
	MaxAccountDataLength = 10 * 1024 * 1024
)
