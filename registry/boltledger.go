package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
)

var (
	bucketAssets = []byte("assets")
	bucketTokens = []byte("tokens")
	bucketMeta   = []byte("meta")

	keyTokenSeq = []byte("token-seq")
)

// BoltLedger persists the registry in a single bolt file. Asset records are
// stored as JSON under their 32-byte id, token holders as raw address
// strings under the big-endian token id, and the mint counter in the meta
// bucket. Bolt serializes writers, which gives the registry its
// one-writer-at-a-time transaction ordering for free.
type BoltLedger struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the ledger file and ensures the buckets
// exist.
func OpenBolt(path string) (*BoltLedger, error) {
	db, err := bolt.Open(path, 0660, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open the ledger at %s: %v", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAssets, bucketTokens, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to init the ledger: %v", err)
	}

	return &BoltLedger{db: db}, nil
}

func (l *BoltLedger) View(fn func(Txn) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

func (l *BoltLedger) Update(fn func(Txn) error) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

func (l *BoltLedger) Close() error {
	return l.db.Close()
}

type boltTxn struct {
	tx *bolt.Tx
}

func (t *boltTxn) Asset(id AssetID) (*AssetRecord, error) {
	val := t.tx.Bucket(bucketAssets).Get(id[:])
	if val == nil {
		return nil, ErrNotFound
	}

	var rec AssetRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("corrupt asset record %s: %v", id, err)
	}
	return &rec, nil
}

func (t *boltTxn) InsertAsset(rec *AssetRecord) error {
	b := t.tx.Bucket(bucketAssets)
	if b.Get(rec.AssetID[:]) != nil {
		return ErrAlreadyRegistered
	}
	return t.putAsset(b, rec)
}

func (t *boltTxn) PutAsset(rec *AssetRecord) error {
	b := t.tx.Bucket(bucketAssets)
	if b.Get(rec.AssetID[:]) == nil {
		return ErrNotFound
	}
	return t.putAsset(b, rec)
}

func (t *boltTxn) putAsset(b *bolt.Bucket, rec *AssetRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("unable to encode asset record %s: %v", rec.AssetID, err)
	}
	return b.Put(rec.AssetID[:], val)
}

func (t *boltTxn) TokenHolder(tokenID uint64) (Address, error) {
	val := t.tx.Bucket(bucketTokens).Get(itob(tokenID))
	if val == nil {
		return "", ErrNotFound
	}
	return Address(val), nil
}

func (t *boltTxn) SetTokenHolder(tokenID uint64, holder Address) error {
	return t.tx.Bucket(bucketTokens).Put(itob(tokenID), []byte(holder))
}

func (t *boltTxn) NextTokenID() (uint64, error) {
	b := t.tx.Bucket(bucketMeta)

	var seq uint64
	if val := b.Get(keyTokenSeq); val != nil {
		seq = binary.BigEndian.Uint64(val)
	}
	seq++

	if err := b.Put(keyTokenSeq, itob(seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

func (t *boltTxn) AssetCount() (int, error) {
	return t.tx.Bucket(bucketAssets).Stats().KeyN, nil
}

func (t *boltTxn) LastTokenID() (uint64, error) {
	if val := t.tx.Bucket(bucketMeta).Get(keyTokenSeq); val != nil {
		return binary.BigEndian.Uint64(val), nil
	}
	return 0, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
