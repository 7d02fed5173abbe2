package registry

// EventTopic is the bus topic every registry event is published on.
const EventTopic = "registry:events"

// AssetRegistered is published once per successful registration.
type AssetRegistered struct {
	AssetID AssetID
	Owner   Address
	IPFSCid string
	TokenID uint64
}

// AssetVerified is published on every successful verify call, including
// calls that set the flag to the value it already has.
type AssetVerified struct {
	AssetID  AssetID
	Verified bool
}

// AssetTransferred is published once per successful ownership change.
// Self-transfers publish too, with From == To.
type AssetTransferred struct {
	AssetID AssetID
	From    Address
	To      Address
	TokenID uint64
}
