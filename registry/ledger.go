package registry

// Ledger is the transactional store behind the registry. Every mutation the
// service performs runs inside a single Update call: either the whole
// transaction commits or none of it does. Readers only ever observe
// committed state.
type Ledger interface {
	// View runs fn in a read-only transaction.
	View(fn func(Txn) error) error

	// Update runs fn in a writable transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	Update(fn func(Txn) error) error

	Close() error
}

// Txn is the operation surface available inside a ledger transaction.
type Txn interface {
	// Asset returns the record for id, or ErrNotFound.
	Asset(id AssetID) (*AssetRecord, error)

	// InsertAsset stores a new record, or fails with ErrAlreadyRegistered
	// if the id is taken. Records are never deleted.
	InsertAsset(rec *AssetRecord) error

	// PutAsset overwrites an existing record, or fails with ErrNotFound.
	PutAsset(rec *AssetRecord) error

	// TokenHolder returns the current holder of a minted token, or
	// ErrNotFound for a token that was never issued.
	TokenHolder(tokenID uint64) (Address, error)

	// SetTokenHolder binds a token to a holder.
	SetTokenHolder(tokenID uint64, holder Address) error

	// NextTokenID advances the mint counter and returns the new value.
	// Ids start at 1 and are never reused.
	NextTokenID() (uint64, error)

	// AssetCount and LastTokenID feed the health endpoint.
	AssetCount() (int, error)
	LastTokenID() (uint64, error)
}
