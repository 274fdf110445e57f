package core

// Site-scoped asset id allocation. Each site mints ids carrying its own
// identity as the origin, so allocation never needs cross-site coordination.

import (
	"errors"
	"math"
	"sync"
)

// ErrAssetIDsExhausted is returned by Alloc once the 32-bit index space is
// spent and the free-list is empty.
var ErrAssetIDsExhausted = errors.New("asset id space exhausted")

// AssetIDManager hands out AssetIDs originating at one site. Reclaimed
// indices are preferred over fresh counter values; the counter saturates
// instead of wrapping.
type AssetIDManager struct {
	mu        sync.Mutex
	site      SiteID
	freeList  []AssetIndex
	next      AssetIndex
	exhausted bool
}

// NewAssetIDManager creates an allocator minting ids for site.
func NewAssetIDManager(site SiteID) *AssetIDManager {
	return &AssetIDManager{site: site}
}

// Site returns the identity this allocator mints for.
func (m *AssetIDManager) Site() SiteID { return m.site }

// Alloc returns a fresh AssetID, reusing a freed index when one is
// available.
func (m *AssetIDManager) Alloc() (AssetID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.freeList); n > 0 {
		idx := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return AssetID{Origin: m.site, Index: idx}, nil
	}
	if m.exhausted {
		return AssetID{}, ErrAssetIDsExhausted
	}
	idx := m.next
	if m.next == math.MaxUint32 {
		m.exhausted = true
	} else {
		m.next++
	}
	return AssetID{Origin: m.site, Index: idx}, nil
}

// Free returns an index to the free-list. Ids minted by another site are not
// safe to reissue locally, so freeing one is a no-op and Free reports false.
func (m *AssetIDManager) Free(id AssetID) bool {
	if id.Origin != m.site {
		return false
	}
	m.mu.Lock()
	m.freeList = append(m.freeList, id.Index)
	m.mu.Unlock()
	return true
}
