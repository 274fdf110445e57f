package core

// WasmComputer runs the compute asset itself as a WebAssembly module instead
// of hashing over it. The module reads its inputs and writes its outputs
// through host imports under "env":
//
//	input_count() -> i32
//	input_len(idx i32) -> i32                       (-1: bad index)
//	input_read(idx, ptr, cap i32) -> i32            (bytes copied, -1: bad index/range)
//	output_write(idx, ptr, len i32) -> i32          (0: ok, -1: bad index/range)
//
// Inputs are ordered as ComputeArgs.Inputs; the program bytes themselves are
// not exposed as an input. Execution enters at the conventional "_start"
// export and every declared output must have been written when it returns.

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// ErrMissingOutput reports a module that returned without writing every
// declared output.
var ErrMissingOutput = errors.New("wasm compute wrote no value for output")

type WasmComputer struct {
	engine *wasmer.Engine
}

// NewWasmComputer creates a backend with a shared JIT engine; instances and
// stores are per-computation.
func NewWasmComputer() *WasmComputer {
	return &WasmComputer{engine: wasmer.NewEngine()}
}

type wasmHostCtx struct {
	mem     *wasmer.Memory
	inputs  [][]byte
	outputs [][]byte
}

func (w *WasmComputer) Compute(args *ComputeArgs, inputs map[AssetID]AssetData) (map[AssetID]AssetData, error) {
	code, ok := inputs[args.ComputeAsset]
	if !ok {
		return nil, fmt.Errorf("wasm compute: missing program %s", args.ComputeAsset)
	}
	store := wasmer.NewStore(w.engine)
	mod, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, fmt.Errorf("wasm compute: %w", err)
	}

	hctx := &wasmHostCtx{outputs: make([][]byte, len(args.Outputs))}
	for _, id := range args.Inputs {
		data, ok := inputs[id]
		if !ok {
			return nil, fmt.Errorf("wasm compute: missing input %s", id)
		}
		hctx.inputs = append(hctx.inputs, data)
	}

	instance, err := wasmer.NewInstance(mod, registerComputeHost(store, hctx))
	if err != nil {
		return nil, fmt.Errorf("wasm compute: %w", err)
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, errors.New("wasm compute: memory export missing")
	}
	hctx.mem = mem

	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return nil, errors.New("wasm compute: _start export required")
	}
	if _, err := start(); err != nil {
		return nil, fmt.Errorf("wasm compute: %w", err)
	}

	out := make(map[AssetID]AssetData, len(args.Outputs))
	for i, id := range args.Outputs {
		if hctx.outputs[i] == nil {
			return nil, fmt.Errorf("%w %s", ErrMissingOutput, id)
		}
		out[id] = hctx.outputs[i]
	}
	return out, nil
}

// registerComputeHost exposes the host callbacks as Wasm imports on the same
// store the module was compiled with.
func registerComputeHost(store *wasmer.Store, h *wasmHostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	inputCount := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes(wasmer.I32)),
		func(_ []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(h.inputs)))}, nil
		},
	)

	inputLen := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32), wasmer.NewValueTypes(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			idx := int(args[0].I32())
			if idx < 0 || idx >= len(h.inputs) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(int32(len(h.inputs[idx])))}, nil
		},
	)

	inputRead := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(wasmer.I32),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			idx, ptr, capacity := int(args[0].I32()), int(args[1].I32()), int(args[2].I32())
			if idx < 0 || idx >= len(h.inputs) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			data := h.inputs[idx]
			mem := h.mem.Data()
			if ptr < 0 || capacity < 0 || ptr+capacity > len(mem) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			n := copy(mem[ptr:ptr+capacity], data)
			return []wasmer.Value{wasmer.NewI32(int32(n))}, nil
		},
	)

	outputWrite := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32),
			wasmer.NewValueTypes(wasmer.I32),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			idx, ptr, length := int(args[0].I32()), int(args[1].I32()), int(args[2].I32())
			if idx < 0 || idx >= len(h.outputs) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			mem := h.mem.Data()
			if ptr < 0 || length < 0 || ptr+length > len(mem) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			h.outputs[idx] = append([]byte(nil), mem[ptr:ptr+length]...)
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"input_count":  inputCount,
		"input_len":    inputLen,
		"input_read":   inputRead,
		"output_write": outputWrite,
	})
	return imports
}
