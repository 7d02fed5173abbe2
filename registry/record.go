package registry

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AssetID is the 32-byte primary key of an asset record, derived once from
// the human-readable asset key and never recomputed afterwards.
type AssetID [32]byte

// DeriveAssetID hashes an asset key into its ledger id. The registry the
// original frontend talks to keys assets by keccak256 of the UTF-8 key
// string, so the same function is used here to keep ids interchangeable.
func DeriveAssetID(assetKey string) AssetID {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(assetKey))

	var id AssetID
	copy(id[:], h.Sum(nil))
	return id
}

// ParseAssetID decodes the wire form produced by Hex.
func ParseAssetID(s string) (AssetID, error) {
	var id AssetID

	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 64 {
		return id, fmt.Errorf("invalid asset id %q: expect 64 hex digits", s)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid asset id %q: %v", s, err)
	}

	copy(id[:], raw)
	return id, nil
}

func (id AssetID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id AssetID) String() string {
	return id.Hex()
}

// AssetRecord is the permanent ledger entry for one registered asset.
// AssetID, IPFSCid and TokenID are fixed at registration; Owner changes on
// transfer and Verified is toggled by the administrator.
type AssetRecord struct {
	AssetID  AssetID `json:"asset_id"`
	Owner    Address `json:"owner"`
	IPFSCid  string  `json:"ipfs_cid"`
	TokenID  uint64  `json:"token_id"`
	Verified bool    `json:"verified"`
}

// MarshalJSON keeps the stored form readable: the asset id is hex, not a
// base64 byte array.
func (id AssetID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.Hex() + `"`), nil
}

func (id *AssetID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAssetID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
