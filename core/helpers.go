package core

// Small formatting helpers shared by log lines, errors and the status API.

import (
	"fmt"
	"sort"
)

func (a AssetID) String() string {
	return fmt.Sprintf("asset:%s/%d", a.Origin.Short(), a.Index)
}

func (k MsgKind) String() string {
	switch k {
	case MsgAssetDataRequest:
		return "AssetDataRequest"
	case MsgAssetData:
		return "AssetData"
	default:
		return fmt.Sprintf("MsgKind(0x%02x)", byte(k))
	}
}

func (m Msg) String() string {
	if m.Kind == MsgAssetData {
		return fmt.Sprintf("%s{%s, %d bytes}", m.Kind, m.Asset, len(m.Data))
	}
	return fmt.Sprintf("%s{%s}", m.Kind, m.Asset)
}

func (c *ComputeArgs) String() string {
	return fmt.Sprintf("compute{in:%v out:%v using:%s}", c.Inputs, c.Outputs, c.ComputeAsset)
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpSendAssetTo:
		return fmt.Sprintf("SendAssetTo{%s -> %s}", ins.Asset, ins.Peer)
	case OpAcquireAssetFrom:
		return fmt.Sprintf("AcquireAssetFrom{%s <- %s}", ins.Asset, ins.Peer)
	case OpComputeAssetData:
		return fmt.Sprintf("ComputeAssetData{%s}", ins.Compute)
	default:
		return fmt.Sprintf("Instruction(op=%d)", ins.Op)
	}
}

// sortedAssetIDs renders store keys in a stable order for logs and snapshots.
func sortedAssetIDs(store map[AssetID]AssetData) []string {
	out := make([]string, 0, len(store))
	for id := range store {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
