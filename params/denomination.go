package params

// These are the multipliers for native balance denominations.
// Example: To get the lamport value of an amount in SOL, use
//
//	amount * params.LamportsPerSOL
const (
	Lamport        = 1
	LamportsPerSOL = 1_000_000_000
)
