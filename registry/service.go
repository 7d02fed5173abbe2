package registry

import (
	"encoding/hex"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// Service is the asset registry. It validates each request against the
// ledger, mints ownership tokens on first registration, and publishes a
// domain event for every committed mutation. The administrator address is
// fixed when the service is constructed and never changes afterwards.
type Service struct {
	ledger Ledger
	issuer Issuer
	admin  Address
	bus    EventBus.Bus
	log    *zap.Logger
}

// Receipt describes a committed mutation. TxID stands in for the
// transaction hash a chain-hosted registry would return.
type Receipt struct {
	TxID    string  `json:"tx_id"`
	AssetID AssetID `json:"asset_id"`
	TokenID uint64  `json:"token_id"`
}

func NewService(ledger Ledger, admin Address, bus EventBus.Bus, log *zap.Logger) *Service {
	return &Service{
		ledger: ledger,
		admin:  admin,
		bus:    bus,
		log:    log,
	}
}

// Register creates the permanent record for a new asset key and mints its
// ownership token to the caller, all in one ledger transaction. A key that
// hashes to an existing id fails with ErrAlreadyRegistered no matter who
// calls.
func (s *Service) Register(assetKey, cid string, caller Address) (*AssetRecord, *Receipt, error) {
	id := DeriveAssetID(assetKey)

	var rec *AssetRecord
	err := s.ledger.Update(func(tx Txn) error {
		if _, err := tx.Asset(id); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
		}

		tokenID, err := s.issuer.Mint(tx, caller)
		if err != nil {
			return err
		}

		rec = &AssetRecord{
			AssetID:  id,
			Owner:    caller,
			IPFSCid:  cid,
			TokenID:  tokenID,
			Verified: false,
		}
		return tx.InsertAsset(rec)
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("asset registered",
		zap.String("asset", id.Hex()),
		zap.Uint64("token", rec.TokenID),
		zap.String("owner", caller.String()))
	s.bus.Publish(EventTopic, AssetRegistered{
		AssetID: id,
		Owner:   caller,
		IPFSCid: cid,
		TokenID: rec.TokenID,
	})

	return rec, s.receipt("register", id, rec.TokenID), nil
}

// Verify sets the verification flag. Only the administrator may call it,
// regardless of who owns the asset. Setting the flag to its current value
// succeeds and re-emits the event.
func (s *Service) Verify(assetKey string, status bool, caller Address) (*Receipt, error) {
	if caller != s.admin {
		return nil, fmt.Errorf("%w: verify requires the administrator", ErrUnauthorized)
	}

	id := DeriveAssetID(assetKey)

	var tokenID uint64
	err := s.ledger.Update(func(tx Txn) error {
		rec, err := tx.Asset(id)
		if err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}

		tokenID = rec.TokenID
		rec.Verified = status
		return tx.PutAsset(rec)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("asset verification set",
		zap.String("asset", id.Hex()),
		zap.Bool("verified", status))
	s.bus.Publish(EventTopic, AssetVerified{AssetID: id, Verified: status})

	return s.receipt("verify", id, tokenID), nil
}

// Transfer moves ownership to another principal. The token holder record
// and the asset record change in the same transaction, so they can never
// disagree. The verification flag survives a transfer.
func (s *Service) Transfer(assetKey string, to, caller Address) (*Receipt, error) {
	id := DeriveAssetID(assetKey)

	var (
		tokenID uint64
		from    Address
	)
	err := s.ledger.Update(func(tx Txn) error {
		rec, err := tx.Asset(id)
		if err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}
		if rec.Owner != caller {
			return fmt.Errorf("%w: %s is not the owner of %s", ErrUnauthorized, caller, id)
		}

		tokenID = rec.TokenID
		from = rec.Owner

		if err := s.issuer.Transfer(tx, rec.TokenID, rec.Owner, to); err != nil {
			return err
		}

		rec.Owner = to
		return tx.PutAsset(rec)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("asset transferred",
		zap.String("asset", id.Hex()),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	s.bus.Publish(EventTopic, AssetTransferred{
		AssetID: id,
		From:    from,
		To:      to,
		TokenID: tokenID,
	})

	return s.receipt("transfer", id, tokenID), nil
}

// Get returns the full record for an asset key. There is no authorization:
// ownership and verification are public.
func (s *Service) Get(assetKey string) (*AssetRecord, error) {
	id := DeriveAssetID(assetKey)

	var rec *AssetRecord
	err := s.ledger.View(func(tx Txn) error {
		var err error
		rec, err = tx.Asset(id)
		if err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Admin returns the fixed administrator address.
func (s *Service) Admin() Address {
	return s.admin
}

// Stats reports the registered asset count and the last minted token id.
func (s *Service) Stats() (assets int, lastToken uint64, err error) {
	err = s.ledger.View(func(tx Txn) error {
		if assets, err = tx.AssetCount(); err != nil {
			return err
		}
		lastToken, err = tx.LastTokenID()
		return err
	})
	return assets, lastToken, err
}

func (s *Service) receipt(op string, id AssetID, tokenID uint64) *Receipt {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(op))
	h.Write(id[:])
	nonce := uuid.New()
	h.Write(nonce[:])

	return &Receipt{
		TxID:    "0x" + hex.EncodeToString(h.Sum(nil)),
		AssetID: id,
		TokenID: tokenID,
	}
}
