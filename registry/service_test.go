package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loopioopisnoopi/digital-asset-tokenization/registry"
)

const (
	adminAddr = registry.Address("0x00000000000000000000000000000000000000ad")
	alice     = registry.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob       = registry.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol     = registry.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

type eventSink struct {
	mu     sync.Mutex
	events []interface{}
}

func (s *eventSink) collect(ev interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) all() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.events...)
}

func newTestService(t *testing.T) (*registry.Service, *registry.MemLedger, *eventSink) {
	ledger := registry.NewMemLedger()
	bus := EventBus.New()

	sink := &eventSink{}
	require.NoError(t, bus.Subscribe(registry.EventTopic, sink.collect))

	return registry.NewService(ledger, adminAddr, bus, zap.NewNop()), ledger, sink
}

func tokenHolder(t *testing.T, ledger registry.Ledger, tokenID uint64) registry.Address {
	var holder registry.Address
	require.NoError(t, ledger.View(func(tx registry.Txn) error {
		var err error
		holder, err = tx.TokenHolder(tokenID)
		return err
	}))
	return holder
}

func TestRegister(t *testing.T) {
	svc, ledger, sink := newTestService(t)

	rec, receipt, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	require.Equal(t, registry.DeriveAssetID("doc-001"), rec.AssetID)
	require.Equal(t, alice, rec.Owner)
	require.Equal(t, "bafy123", rec.IPFSCid)
	require.Equal(t, uint64(1), rec.TokenID)
	require.False(t, rec.Verified)

	require.Len(t, receipt.TxID, 66)
	require.Equal(t, "0x", receipt.TxID[:2])
	require.Equal(t, rec.AssetID, receipt.AssetID)
	require.Equal(t, uint64(1), receipt.TokenID)

	require.Equal(t, alice, tokenHolder(t, ledger, 1))

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, registry.AssetRegistered{
		AssetID: rec.AssetID,
		Owner:   alice,
		IPFSCid: "bafy123",
		TokenID: 1,
	}, events[0])
}

func TestRegisterTokenIDsIncrease(t *testing.T) {
	svc, _, _ := newTestService(t)

	keys := []string{"doc-001", "doc-002", "doc-003"}
	for i, key := range keys {
		rec, _, err := svc.Register(key, "bafy", alice)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), rec.TokenID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	// a different caller and a different cid do not matter: the id is taken
	_, _, err = svc.Register("doc-001", "bafy999", bob)
	require.ErrorIs(t, err, registry.ErrAlreadyRegistered)

	rec, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.Equal(t, alice, rec.Owner)
	require.Equal(t, "bafy123", rec.IPFSCid)
}

func TestVerify(t *testing.T) {
	svc, _, sink := newTestService(t)

	_, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	// even the owner cannot verify
	_, err = svc.Verify("doc-001", true, alice)
	require.ErrorIs(t, err, registry.ErrUnauthorized)

	rec, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.False(t, rec.Verified)

	_, err = svc.Verify("doc-001", true, adminAddr)
	require.NoError(t, err)

	rec, err = svc.Get("doc-001")
	require.NoError(t, err)
	require.True(t, rec.Verified)

	// unverify works the same way
	_, err = svc.Verify("doc-001", false, adminAddr)
	require.NoError(t, err)

	rec, err = svc.Get("doc-001")
	require.NoError(t, err)
	require.False(t, rec.Verified)

	_, err = svc.Verify("doc-404", true, adminAddr)
	require.ErrorIs(t, err, registry.ErrNotFound)

	verifyEvents := 0
	for _, ev := range sink.all() {
		if _, ok := ev.(registry.AssetVerified); ok {
			verifyEvents++
		}
	}
	require.Equal(t, 2, verifyEvents)
}

func TestVerifyIdempotent(t *testing.T) {
	svc, _, sink := newTestService(t)

	_, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	_, err = svc.Verify("doc-001", true, adminAddr)
	require.NoError(t, err)
	_, err = svc.Verify("doc-001", true, adminAddr)
	require.NoError(t, err)

	rec, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.True(t, rec.Verified)

	// each successful call re-emits the event
	id := registry.DeriveAssetID("doc-001")
	var verified []registry.AssetVerified
	for _, ev := range sink.all() {
		if v, ok := ev.(registry.AssetVerified); ok {
			verified = append(verified, v)
		}
	}
	require.Equal(t, []registry.AssetVerified{
		{AssetID: id, Verified: true},
		{AssetID: id, Verified: true},
	}, verified)
}

func TestTransfer(t *testing.T) {
	svc, ledger, sink := newTestService(t)

	rec, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	_, err = svc.Transfer("doc-001", bob, alice)
	require.NoError(t, err)

	got, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.Equal(t, bob, got.Owner)
	require.Equal(t, bob, tokenHolder(t, ledger, rec.TokenID))

	events := sink.all()
	require.Equal(t, registry.AssetTransferred{
		AssetID: rec.AssetID,
		From:    alice,
		To:      bob,
		TokenID: rec.TokenID,
	}, events[len(events)-1])
}

func TestTransferUnauthorized(t *testing.T) {
	svc, ledger, _ := newTestService(t)

	rec, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	// carol is neither owner nor admin
	_, err = svc.Transfer("doc-001", bob, carol)
	require.ErrorIs(t, err, registry.ErrUnauthorized)

	got, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.Equal(t, alice, got.Owner)
	require.Equal(t, alice, tokenHolder(t, ledger, rec.TokenID))

	// the previous owner loses the privilege after a transfer
	_, err = svc.Transfer("doc-001", bob, alice)
	require.NoError(t, err)
	_, err = svc.Transfer("doc-001", carol, alice)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestTransferNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transfer("doc-404", bob, alice)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestTransferToSelf(t *testing.T) {
	svc, ledger, _ := newTestService(t)

	rec, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	_, err = svc.Transfer("doc-001", alice, alice)
	require.NoError(t, err)

	got, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.Equal(t, alice, got.Owner)
	require.Equal(t, alice, tokenHolder(t, ledger, rec.TokenID))
}

func TestVerifiedSurvivesTransfer(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)

	_, err = svc.Verify("doc-001", true, adminAddr)
	require.NoError(t, err)

	_, err = svc.Transfer("doc-001", bob, alice)
	require.NoError(t, err)

	rec, err := svc.Get("doc-001")
	require.NoError(t, err)
	require.Equal(t, bob, rec.Owner)
	require.True(t, rec.Verified)
	require.Equal(t, uint64(1), rec.TokenID)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get("doc-404")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.Equal(t, adminAddr, svc.Admin())
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)

	assets, lastToken, err := svc.Stats()
	require.NoError(t, err)
	require.Zero(t, assets)
	require.Zero(t, lastToken)

	_, _, err = svc.Register("doc-001", "bafy123", alice)
	require.NoError(t, err)
	_, _, err = svc.Register("doc-002", "bafy456", bob)
	require.NoError(t, err)

	assets, lastToken, err = svc.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, assets)
	require.Equal(t, uint64(2), lastToken)
}

func TestConcurrentRegister(t *testing.T) {
	svc, _, _ := newTestService(t)

	const n = 16
	callers := []registry.Address{alice, bob, carol}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Register("doc-001", "bafy123", callers[i%len(callers)])
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.True(t, errors.Is(err, registry.ErrAlreadyRegistered), "unexpected error: %v", err)
	}
	require.Equal(t, 1, successes)

	// the losers never reached the mint counter
	_, lastToken, err := svc.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(1), lastToken)
}
