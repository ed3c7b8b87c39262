package netguard

import (
	"fmt"
	"math/big"
)

// SepoliaChainID is the chain identifier of the Sepolia test network, the
// only network the land registry contract is deployed on.
const SepoliaChainID = 11155111

// Guard validates that an active chain matches the required one. The check
// is deliberately pure so callers can re-run it at every trust boundary: a
// user can switch networks in their wallet between connecting and signing.
type Guard struct {
	// Required is the chain ID the registry contract lives on.
	Required *big.Int
}

// NewGuard creates a Guard for the given chain ID.
func NewGuard(required *big.Int) *Guard {
	if required == nil {
		required = big.NewInt(SepoliaChainID)
	}
	return &Guard{Required: required}
}

// Sepolia returns a Guard pinned to the Sepolia test network.
func Sepolia() *Guard {
	return NewGuard(big.NewInt(SepoliaChainID))
}

// Assert checks that the active chain is the required one.
//
// Returns ErrNetworkMismatch if it is not. The caller must abort whatever
// action prompted the check; the user has to switch networks in their
// wallet before retrying.
func (g *Guard) Assert(active *big.Int) error {
	if active == nil {
		return fmt.Errorf("%w: active chain unknown, want %s",
			ErrNetworkMismatch, g.Required)
	}
	if active.Cmp(g.Required) != 0 {
		return fmt.Errorf("%w: connected to chain %s, want %s",
			ErrNetworkMismatch, active, g.Required)
	}
	return nil
}
