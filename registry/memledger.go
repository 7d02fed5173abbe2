package registry

import "sync"

// MemLedger is an in-memory Ledger with the same transactional contract as
// the bolt one. Writes are buffered in the transaction and applied only if
// the whole transaction succeeds, so a failing Update leaves no partial
// state behind. Used by tests and available as a non-persistent backend.
type MemLedger struct {
	mu       sync.RWMutex
	assets   map[AssetID]AssetRecord
	tokens   map[uint64]Address
	tokenSeq uint64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		assets: make(map[AssetID]AssetRecord),
		tokens: make(map[uint64]Address),
	}
}

func (l *MemLedger) View(fn func(Txn) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return fn(&memTxn{ledger: l})
}

func (l *MemLedger) Update(fn func(Txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := &memTxn{
		ledger:   l,
		writable: true,
		assets:   make(map[AssetID]AssetRecord),
		tokens:   make(map[uint64]Address),
		tokenSeq: l.tokenSeq,
	}
	if err := fn(txn); err != nil {
		return err
	}

	for id, rec := range txn.assets {
		l.assets[id] = rec
	}
	for id, holder := range txn.tokens {
		l.tokens[id] = holder
	}
	l.tokenSeq = txn.tokenSeq
	return nil
}

func (l *MemLedger) Close() error {
	return nil
}

type memTxn struct {
	ledger   *MemLedger
	writable bool

	// staged writes, committed by Update on success
	assets   map[AssetID]AssetRecord
	tokens   map[uint64]Address
	tokenSeq uint64
}

func (t *memTxn) Asset(id AssetID) (*AssetRecord, error) {
	if t.writable {
		if rec, ok := t.assets[id]; ok {
			out := rec
			return &out, nil
		}
	}
	if rec, ok := t.ledger.assets[id]; ok {
		out := rec
		return &out, nil
	}
	return nil, ErrNotFound
}

func (t *memTxn) InsertAsset(rec *AssetRecord) error {
	if _, err := t.Asset(rec.AssetID); err == nil {
		return ErrAlreadyRegistered
	}
	t.assets[rec.AssetID] = *rec
	return nil
}

func (t *memTxn) PutAsset(rec *AssetRecord) error {
	if _, err := t.Asset(rec.AssetID); err != nil {
		return err
	}
	t.assets[rec.AssetID] = *rec
	return nil
}

func (t *memTxn) TokenHolder(tokenID uint64) (Address, error) {
	if t.writable {
		if holder, ok := t.tokens[tokenID]; ok {
			return holder, nil
		}
	}
	if holder, ok := t.ledger.tokens[tokenID]; ok {
		return holder, nil
	}
	return "", ErrNotFound
}

func (t *memTxn) SetTokenHolder(tokenID uint64, holder Address) error {
	t.tokens[tokenID] = holder
	return nil
}

func (t *memTxn) NextTokenID() (uint64, error) {
	t.tokenSeq++
	return t.tokenSeq, nil
}

func (t *memTxn) AssetCount() (int, error) {
	n := len(t.ledger.assets)
	if t.writable {
		for id := range t.assets {
			if _, ok := t.ledger.assets[id]; !ok {
				n++
			}
		}
	}
	return n, nil
}

func (t *memTxn) LastTokenID() (uint64, error) {
	if t.writable {
		return t.tokenSeq, nil
	}
	return t.ledger.tokenSeq, nil
}
