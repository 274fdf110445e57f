package core

// Compute backends. The engine treats computation as an externally supplied
// pure function over asset values; the default backend derives outputs by
// hashing so runs are deterministic and every output is distinct.

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Computer turns the values of a compute's needed assets into its output
// values. Implementations must be pure: same inputs, same outputs. The
// engine only calls Compute once every needed asset is present in inputs,
// and a returned error aborts the site.
type Computer interface {
	Compute(args *ComputeArgs, inputs map[AssetID]AssetData) (map[AssetID]AssetData, error)
}

// HashComputer is the reference backend: a sha256 digest folded over the
// program bytes and each input in order, then chained once per output so
// every output value is deterministic and distinct. Output values are 8-byte
// words.
type HashComputer struct{}

func (HashComputer) Compute(args *ComputeArgs, inputs map[AssetID]AssetData) (map[AssetID]AssetData, error) {
	fold := sha256.New()
	writeValue := func(id AssetID) error {
		data, ok := inputs[id]
		if !ok {
			return fmt.Errorf("compute: missing input %s", id)
		}
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(data)))
		fold.Write(n[:])
		fold.Write(data)
		return nil
	}
	if err := writeValue(args.ComputeAsset); err != nil {
		return nil, err
	}
	for _, in := range args.Inputs {
		if err := writeValue(in); err != nil {
			return nil, err
		}
	}
	chain := fold.Sum(nil)
	out := make(map[AssetID]AssetData, len(args.Outputs))
	for _, id := range args.Outputs {
		next := sha256.Sum256(chain)
		chain = next[:]
		out[id] = AssetData(append([]byte(nil), chain[:8]...))
	}
	return out, nil
}
