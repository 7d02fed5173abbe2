package registry

import "fmt"

// Issuer mints the non-fungible ownership tokens and tracks who holds
// them. It operates inside a ledger transaction supplied by the caller, so
// a mint or a holder change commits together with the asset record it
// belongs to.
type Issuer struct{}

// Mint issues a fresh token to the given holder and returns its id. Ids
// are strictly increasing across the lifetime of the ledger, with no reuse.
func (Issuer) Mint(tx Txn, to Address) (uint64, error) {
	tokenID, err := tx.NextTokenID()
	if err != nil {
		return 0, fmt.Errorf("unable to advance the token counter: %v", err)
	}

	if err := tx.SetTokenHolder(tokenID, to); err != nil {
		return 0, fmt.Errorf("unable to bind token %d to %s: %v", tokenID, to, err)
	}
	return tokenID, nil
}

// Transfer moves a token from its current holder to another principal. It
// fails with ErrUnauthorized if from is not the current holder. A transfer
// to the current holder is accepted as a no-op.
func (Issuer) Transfer(tx Txn, tokenID uint64, from, to Address) error {
	holder, err := tx.TokenHolder(tokenID)
	if err != nil {
		return err
	}
	if holder != from {
		return fmt.Errorf("%w: token %d held by %s, not %s", ErrUnauthorized, tokenID, holder, from)
	}

	if from == to {
		return nil
	}
	return tx.SetTokenHolder(tokenID, to)
}
