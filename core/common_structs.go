package core

// common_structs.go – centralised struct definitions referenced across the
// planner, the site engine and the network fabric. This file declares only
// data structures (no behaviour) so the dependency graph between the
// per-subsystem files stays flat.
// -----------------------------------------------------------------------------

import (
	"crypto/ed25519"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

//---------------------------------------------------------------------
// Identifiers
//---------------------------------------------------------------------

// SiteID is the stable network-wide identity of a site: the raw bytes of its
// long-term Ed25519 signing public key. It is a distinct value type so key
// material never leaks into APIs that only need an opaque handle.
type SiteID [ed25519.PublicKeySize]byte

// AssetIndex is a site-local 32-bit asset counter value.
type AssetIndex uint32

// AssetID is a globally unique asset handle: the site that minted the id plus
// that site's local index. The pair shape lets every site allocate ids without
// coordination.
type AssetID struct {
	Origin SiteID
	Index  AssetIndex
}

// AssetData is an opaque byte payload. Two assets with equal bytes are
// indistinguishable; the value carries no identity of its own.
type AssetData []byte

//---------------------------------------------------------------------
// Keys
//---------------------------------------------------------------------

// Keypair bundles a site's Ed25519 signing credential.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

//---------------------------------------------------------------------
// Computations & instructions
//---------------------------------------------------------------------

// ComputeArgs describes one requested computation: ordered inputs, ordered
// outputs and the asset executed as the program. Outputs must be disjoint
// from the needed assets; the planner does not check this.
type ComputeArgs struct {
	Inputs       []AssetID
	Outputs      []AssetID
	ComputeAsset AssetID
}

// OpKind discriminates the Instruction variants.
type OpKind uint8

const (
	OpSendAssetTo OpKind = iota + 1
	OpAcquireAssetFrom
	OpComputeAssetData
)

// Instruction is one unit of work a site must perform. Asset and Peer are
// meaningful for the send/acquire kinds, Compute for the compute kind.
type Instruction struct {
	Op      OpKind
	Asset   AssetID
	Peer    SiteID
	Compute *ComputeArgs
}

//---------------------------------------------------------------------
// Planner input
//---------------------------------------------------------------------

// SiteAsset is a (site, asset) relation element used by the policy and
// placement sets of a Problem.
type SiteAsset struct {
	Site  SiteID
	Asset AssetID
}

// Problem is the declarative planner input. The relations are modelled as
// sets of pairs; the planner builds the directional indexes it needs.
type Problem struct {
	MayAccess    map[SiteAsset]struct{}
	MayCompute   map[SiteAsset]struct{}
	SiteHasAsset map[SiteAsset]struct{}
	DoCompute    []ComputeArgs
}

//---------------------------------------------------------------------
// Wire messages
//---------------------------------------------------------------------

// MsgKind is the 1-byte wire tag of a Msg.
type MsgKind uint8

const (
	MsgAssetDataRequest MsgKind = 0x00
	MsgAssetData        MsgKind = 0x01
)

// Msg is a protocol payload. Data is set only for MsgAssetData. The
// requester of a MsgAssetDataRequest is implicit in the envelope sender.
type Msg struct {
	Kind  MsgKind
	Asset AssetID
	Data  AssetData
}

// SignedMsg is the authenticated envelope carried by the fabric. Sig covers
// the canonical encoding of Payload under the sender's key.
type SignedMsg struct {
	Sender  SiteID
	Sig     [ed25519.SignatureSize]byte
	Payload Msg
}

//---------------------------------------------------------------------
// Engine & fabric configuration
//---------------------------------------------------------------------

// EngineConfig carries the per-site protocol timings.
type EngineConfig struct {
	// RequestPeriod is the minimum spacing between outbound re-requests of
	// the same asset.
	RequestPeriod time.Duration
	// RecvTimeout is how long the engine blocks on its inbox before treating
	// the silence as quiescence and shutting down.
	RecvTimeout time.Duration
}

// NodeSpec describes one site to SetupNetwork.
type NodeSpec struct {
	Keypair Keypair
	Logger  *log.Logger
}

// NetworkConfig describes an in-process network: the participating sites and
// the bidirectional edges between them. The outbox directory built from it is
// immutable once the sites are running.
type NetworkConfig struct {
	Nodes      map[SiteID]NodeSpec
	BidirEdges [][2]SiteID
	// InboxCapacity bounds each site's fan-in channel. Zero selects
	// DefaultInboxCapacity; sends block only under backpressure.
	InboxCapacity int
	Engine        EngineConfig
	Computer      Computer
}

//---------------------------------------------------------------------
// Runtime state & snapshots
//---------------------------------------------------------------------

// Site is a single federation participant: its identity, asset store, todo
// multiset and network endpoints. All fields except the snapshot are owned
// exclusively by the goroutine running Execute.
type Site struct {
	id        SiteID
	keypair   Keypair
	idManager *AssetIDManager

	assetStore      map[AssetID]AssetData
	todo            []Instruction
	lastRequestedAt map[AssetID]time.Time

	inbox    <-chan SignedMsg
	outboxes map[SiteID]chan<- SignedMsg

	cfg      EngineConfig
	computer Computer
	logger   *log.Logger

	computesDone   int
	verifyFailures int

	snapMu sync.Mutex
	snap   SiteSnapshot
}

// SiteSnapshot is a read-only view of a site's progress, published for the
// status API while the engine runs.
type SiteSnapshot struct {
	Site           string   `json:"site"`
	TodoRemaining  int      `json:"todo_remaining"`
	StoredAssets   []string `json:"stored_assets"`
	ComputesDone   int      `json:"computes_done"`
	VerifyFailures int      `json:"verify_failures"`
	Quiesced       bool     `json:"quiesced"`
}
