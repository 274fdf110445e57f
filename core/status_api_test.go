package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func statusFixture(t *testing.T) (*StatusServer, *Site) {
	t.Helper()
	kpA, kpB := testKeypair(t, 1), testKeypair(t, 2)
	a := newSite(kpA, make(chan SignedMsg), fastEngine(), nil, quietLogger())
	b := newSite(kpB, make(chan SignedMsg), fastEngine(), nil, quietLogger())
	if _, err := a.CreateNewAsset(AssetData("held")); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	a.publishSnapshot(false)
	b.publishSnapshot(true)
	return NewStatusServer(map[SiteID]*Site{a.ID(): a, b.ID(): b}), a
}

func TestStatusHealthz(t *testing.T) {
	sv, _ := statusFixture(t)
	srv := httptest.NewServer(sv.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusListsAllSites(t *testing.T) {
	sv, _ := statusFixture(t)
	srv := httptest.NewServer(sv.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sites")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var snaps []SiteSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Site >= snaps[1].Site {
		t.Fatalf("snapshots should be ordered by identity")
	}
}

func TestStatusSingleSiteByShortID(t *testing.T) {
	sv, a := statusFixture(t)
	srv := httptest.NewServer(sv.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sites/" + a.ID().Short())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap SiteSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Site != a.ID().Hex() {
		t.Fatalf("wrong site returned")
	}
	if len(snap.StoredAssets) != 1 {
		t.Fatalf("snapshot should list the stored asset")
	}
}

func TestStatusUnknownSite(t *testing.T) {
	sv, _ := statusFixture(t)
	srv := httptest.NewServer(sv.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sites/ffffffff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
