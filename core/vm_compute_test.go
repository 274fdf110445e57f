package core

import "testing"

func TestWasmComputerRejectsInvalidModule(t *testing.T) {
	site := testKeypair(t, 1).SiteID()
	ids := NewAssetIDManager(site)
	prog, _ := ids.Alloc()
	out, _ := ids.Alloc()
	args := &ComputeArgs{Outputs: []AssetID{out}, ComputeAsset: prog}
	inputs := map[AssetID]AssetData{prog: AssetData("not a wasm module")}

	if _, err := NewWasmComputer().Compute(args, inputs); err == nil {
		t.Fatalf("garbage program bytes should fail to compile")
	}
}

func TestWasmComputerMissingProgram(t *testing.T) {
	site := testKeypair(t, 1).SiteID()
	ids := NewAssetIDManager(site)
	prog, _ := ids.Alloc()
	args := &ComputeArgs{ComputeAsset: prog}

	if _, err := NewWasmComputer().Compute(args, map[AssetID]AssetData{}); err == nil {
		t.Fatalf("absent program asset should be an error")
	}
}
