package core

import (
	"strings"
	"testing"
)

const sampleProblemYAML = `
sites:
  - name: amy
  - name: bob
  - name: cho
assets:
  - name: x
    holder: amy
  - name: y
    holder: bob
  - name: f
    holder: cho
  - name: z
    origin: cho
may_access:
  - {site: amy, asset: x}
  - {site: bob, asset: x}
  - {site: bob, asset: y}
  - {site: bob, asset: f}
  - {site: cho, asset: f}
  - {site: cho, asset: z}
may_compute:
  - {site: bob, asset: f}
do_compute:
  - inputs: [x, y]
    outputs: [z]
    compute: f
`

func TestProblemDocResolve(t *testing.T) {
	doc, err := ParseProblemDoc([]byte(sampleProblemYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, err := doc.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(r.SiteByName) != 3 || len(r.AssetByName) != 4 {
		t.Fatalf("expected 3 sites and 4 assets, got %d/%d", len(r.SiteByName), len(r.AssetByName))
	}
	if len(r.Keypairs) != 3 {
		t.Fatalf("unpinned sites should get generated keypairs")
	}
	bob := r.SiteByName["bob"]
	y := r.AssetByName["y"]
	if _, held := r.Problem.SiteHasAsset[SiteAsset{Site: bob, Asset: y}]; !held {
		t.Fatalf("bob should initially hold y")
	}
	z := r.AssetByName["z"]
	if z.Origin != r.SiteByName["cho"] {
		t.Fatalf("z should be minted by cho")
	}
	if len(r.Problem.DoCompute) != 1 {
		t.Fatalf("expected one compute")
	}

	plan, err := Plan(r.Problem)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if countOps(plan[bob], OpComputeAssetData) != 1 {
		t.Fatalf("bob should be the compute site")
	}
}

func TestProblemDocResolvePinnedKey(t *testing.T) {
	pinned := testKeypair(t, 9).SiteID()
	yamlDoc := `
sites:
  - name: solo
    pubkey: ` + pinned.Hex() + `
assets:
  - name: a
    holder: solo
`
	doc, err := ParseProblemDoc([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, err := doc.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.SiteByName["solo"] != pinned {
		t.Fatalf("pinned identity should be used verbatim")
	}
	if len(r.Keypairs) != 0 {
		t.Fatalf("no keypair should be generated for a pinned site")
	}
}

func TestProblemDocRejectsBadReferences(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown holder", "sites:\n  - name: a\nassets:\n  - name: x\n    holder: nobody\n", "unknown"},
		{"duplicate site", "sites:\n  - name: a\n  - name: a\n", "duplicate site"},
		{"duplicate asset", "sites:\n  - name: a\nassets:\n  - name: x\n  - name: x\n", "duplicate asset"},
		{"unknown grant site", "sites:\n  - name: a\nassets:\n  - name: x\nmay_access:\n  - {site: b, asset: x}\n", "unknown site"},
		{"unknown compute asset", "sites:\n  - name: a\nassets:\n  - name: x\ndo_compute:\n  - inputs: [x]\n    outputs: [x]\n    compute: q\n", "unknown asset"},
		{"missing compute asset", "sites:\n  - name: a\nassets:\n  - name: x\ndo_compute:\n  - inputs: [x]\n    outputs: [x]\n", "missing compute"},
		{"no sites", "assets:\n  - name: x\n", "no sites"},
	}
	for _, tc := range cases {
		doc, err := ParseProblemDoc([]byte(tc.doc))
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.name, err)
		}
		_, err = doc.Resolve()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestParseProblemDocRejectsUnknownFields(t *testing.T) {
	if _, err := ParseProblemDoc([]byte("sites:\n  - name: a\nbogus_field: 1\n")); err == nil {
		t.Fatalf("unknown top-level fields should be rejected")
	}
}

func TestProblemValidateWarnsOnInaccessibleOutput(t *testing.T) {
	site := testKeypair(t, 1).SiteID()
	ids := NewAssetIDManager(site)
	in, _ := ids.Alloc()
	out, _ := ids.Alloc()
	f, _ := ids.Alloc()

	p := NewProblem()
	p.PlaceAsset(site, in)
	p.PlaceAsset(site, f)
	p.AllowAccess(site, in)
	p.AllowAccess(site, f)
	p.AllowCompute(site, f)
	p.AddCompute(ComputeArgs{Inputs: []AssetID{in}, Outputs: []AssetID{out}, ComputeAsset: f})

	warnings := p.Validate()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "output") {
		t.Fatalf("expected one output warning, got %v", warnings)
	}
	p.AllowAccess(site, out)
	if warnings := p.Validate(); len(warnings) != 0 {
		t.Fatalf("covered output should not warn, got %v", warnings)
	}
}

func TestRenderPlanUsesDocumentNames(t *testing.T) {
	doc, err := ParseProblemDoc([]byte(sampleProblemYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, err := doc.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	plan, err := Plan(r.Problem)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	rendered, err := r.RenderPlan(plan)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := string(rendered)
	for _, want := range []string{"amy", "bob", "cho", "send_asset_to", "acquire_asset_from", "compute_asset_data"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered plan should mention %q:\n%s", want, text)
		}
	}
}
