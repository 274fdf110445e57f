package core

// The site execution engine. Execute owns the calling goroutine and drives
// the todo multiset to completion in two alternating phases: complete
// whatever can make progress, then block on the inbox. Silence on the inbox
// for RecvTimeout is quiescence and shuts the site down.

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultRequestPeriod is the minimum spacing between re-requests of the
	// same asset.
	DefaultRequestPeriod = 300 * time.Millisecond
	// DefaultRecvTimeout is how long a site waits on its inbox before
	// treating the run as drained.
	DefaultRecvTimeout = time.Second
)

type instructionResult uint8

const (
	noProgress instructionResult = iota
	removeThis
	removeThisAndRestart
)

func newSite(kp Keypair, inbox <-chan SignedMsg, cfg EngineConfig, computer Computer, logger *log.Logger) *Site {
	if cfg.RequestPeriod <= 0 {
		cfg.RequestPeriod = DefaultRequestPeriod
	}
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = DefaultRecvTimeout
	}
	if computer == nil {
		computer = HashComputer{}
	}
	if logger == nil {
		logger = log.New()
	}
	id := kp.SiteID()
	return &Site{
		id:              id,
		keypair:         kp,
		idManager:       NewAssetIDManager(id),
		assetStore:      make(map[AssetID]AssetData),
		lastRequestedAt: make(map[AssetID]time.Time),
		inbox:           inbox,
		outboxes:        make(map[SiteID]chan<- SignedMsg),
		cfg:             cfg,
		computer:        computer,
		logger:          logger,
	}
}

// ID returns the site's network identity.
func (s *Site) ID() SiteID { return s.id }

// AddInstructions appends planner output to the todo multiset. Only valid
// before Execute starts.
func (s *Site) AddInstructions(ins ...Instruction) {
	s.todo = append(s.todo, ins...)
}

// SeedAsset installs an initial asset value. Only valid before Execute
// starts.
func (s *Site) SeedAsset(id AssetID, data AssetData) {
	s.assetStore[id] = data
}

// CreateNewAsset allocates a fresh id from the site's own manager and stores
// data under it.
func (s *Site) CreateNewAsset(data AssetData) (AssetID, error) {
	id, err := s.idManager.Alloc()
	if err != nil {
		return AssetID{}, err
	}
	s.assetStore[id] = data
	return id, nil
}

// StoredAsset returns the current value of an asset, if present. Safe only
// before Execute starts or after it returns.
func (s *Site) StoredAsset(id AssetID) (AssetData, bool) {
	data, ok := s.assetStore[id]
	return data, ok
}

// sendTo signs and dispatches a message. The outbox directory is closed
// world; addressing an unknown peer is a programmer error and aborts the
// site.
func (s *Site) sendTo(dest SiteID, m Msg) {
	sm, err := SignMsg(s.keypair, m)
	if err != nil {
		s.logger.Panicf("%s: sign %s: %v", s.id, m, err)
	}
	out, ok := s.outboxes[dest]
	if !ok {
		s.logger.Panicf("%s: no outbox for peer %s", s.id, dest)
	}
	s.logger.Infof("%s sending to %s msg %s", s.id, dest, m)
	out <- sm
}

//---------------------------------------------------------------------
// Instruction completion
//---------------------------------------------------------------------

func (s *Site) tryComplete(ins *Instruction) instructionResult {
	switch ins.Op {
	case OpAcquireAssetFrom:
		if _, ok := s.assetStore[ins.Asset]; ok {
			return removeThis
		}
		now := time.Now()
		if at, ok := s.lastRequestedAt[ins.Asset]; !ok || now.Sub(at) >= s.cfg.RequestPeriod {
			s.lastRequestedAt[ins.Asset] = now
			s.sendTo(ins.Peer, Msg{Kind: MsgAssetDataRequest, Asset: ins.Asset})
		}
		return noProgress

	case OpSendAssetTo:
		data, ok := s.assetStore[ins.Asset]
		if !ok {
			return noProgress
		}
		s.sendTo(ins.Peer, Msg{Kind: MsgAssetData, Asset: ins.Asset, Data: data})
		return removeThis

	case OpComputeAssetData:
		inputs := make(map[AssetID]AssetData)
		for _, needed := range ins.Compute.NeededAssets() {
			data, ok := s.assetStore[needed]
			if !ok {
				return noProgress
			}
			inputs[needed] = data
		}
		outputs, err := s.computer.Compute(ins.Compute, inputs)
		if err != nil {
			// The precondition held, so the backend itself is broken for
			// this input; there is no recovery path.
			s.logger.Panicf("%s: compute %s: %v", s.id, ins.Compute, err)
		}
		s.logger.Infof("%s did a computation with outputs %v and inputs %v using %s",
			s.id, ins.Compute.Outputs, ins.Compute.Inputs, ins.Compute.ComputeAsset)
		for _, id := range ins.Compute.Outputs {
			s.assetStore[id] = outputs[id]
		}
		s.computesDone++
		return removeThisAndRestart

	default:
		s.logger.Panicf("%s: unknown instruction op %d", s.id, ins.Op)
		return noProgress
	}
}

func (s *Site) swapRemove(i int) {
	last := len(s.todo) - 1
	s.todo[i] = s.todo[last]
	s.todo = s.todo[:last]
}

//---------------------------------------------------------------------
// Main loop
//---------------------------------------------------------------------

// Execute drives the todo multiset to completion, exchanging messages with
// peers. It consumes the calling goroutine and returns on quiescence.
func (s *Site) Execute() {
	for {
		// Complete as many todo instructions as currently possible. The
		// multiset is unordered, so a swap-remove is fine; a completed
		// computation restarts the scan because new store entries may
		// unblock earlier-skipped instructions.
		i := 0
		for i < len(s.todo) {
			switch s.tryComplete(&s.todo[i]) {
			case noProgress:
				i++
			case removeThis:
				s.swapRemove(i)
			case removeThisAndRestart:
				s.swapRemove(i)
				i = 0
			}
		}
		s.publishSnapshot(false)

		select {
		case sm, ok := <-s.inbox:
			if !ok {
				s.logger.Infof("%s inbox closed, shutting down", s.id)
				s.publishSnapshot(true)
				return
			}
			if err := sm.Verify(); err != nil {
				s.verifyFailures++
				s.logger.Warnf("%s dropping message from %s: %v", s.id, sm.Sender, err)
				continue
			}
			s.handleMsg(sm)
		case <-time.After(s.cfg.RecvTimeout):
			s.logger.Infof("%s RECV timeout with todo %v assets %v",
				s.id, s.todo, sortedAssetIDs(s.assetStore))
			s.publishSnapshot(true)
			return
		}
	}
}

func (s *Site) handleMsg(sm SignedMsg) {
	switch sm.Payload.Kind {
	case MsgAssetDataRequest:
		asset, requester := sm.Payload.Asset, sm.Sender
		s.logger.Infof("%s recv request for %s from %s", s.id, asset, requester)
		if data, ok := s.assetStore[asset]; ok {
			s.sendTo(requester, Msg{Kind: MsgAssetData, Asset: asset, Data: data})
			return
		}
		// Not here yet; queue a send that completes once the asset arrives
		// by another path.
		s.todo = append(s.todo, Instruction{Op: OpSendAssetTo, Asset: asset, Peer: requester})

	case MsgAssetData:
		s.logger.Infof("%s recv %s from %s", s.id, sm.Payload, sm.Sender)
		delete(s.lastRequestedAt, sm.Payload.Asset)
		s.assetStore[sm.Payload.Asset] = sm.Payload.Data
	}
}

//---------------------------------------------------------------------
// Snapshots
//---------------------------------------------------------------------

func (s *Site) publishSnapshot(quiesced bool) {
	snap := SiteSnapshot{
		Site:           s.id.Hex(),
		TodoRemaining:  len(s.todo),
		StoredAssets:   sortedAssetIDs(s.assetStore),
		ComputesDone:   s.computesDone,
		VerifyFailures: s.verifyFailures,
		Quiesced:       quiesced,
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// Snapshot returns the most recently published progress view. Safe to call
// from any goroutine.
func (s *Site) Snapshot() SiteSnapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snap
}
