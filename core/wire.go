package core

// Wire protocol: the canonical Msg encoding and the signed envelope framing.
//
// The canonical encoding is what gets signed, so it must be deterministic and
// collision-resistant over the tag-and-fields structure: a 1-byte variant
// tag, fixed-width big-endian integers, and an 8-byte big-endian length
// prefix on the variable-length asset bytes. No struct memory is ever signed
// directly.

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	assetIDWireSize   = ed25519.PublicKeySize + 4
	envelopeHeaderLen = ed25519.PublicKeySize + ed25519.SignatureSize
)

var (
	// ErrTruncatedMsg reports a payload shorter than its declared layout.
	ErrTruncatedMsg = errors.New("truncated message")
	// ErrUnknownMsgKind reports an unrecognised variant tag.
	ErrUnknownMsgKind = errors.New("unknown message kind")
	// ErrTrailingBytes reports extra bytes after a complete payload.
	ErrTrailingBytes = errors.New("trailing bytes after message")
)

//---------------------------------------------------------------------
// Canonical payload encoding
//---------------------------------------------------------------------

func appendAssetID(dst []byte, id AssetID) []byte {
	dst = append(dst, id.Origin[:]...)
	return binary.BigEndian.AppendUint32(dst, uint32(id.Index))
}

func parseAssetID(src []byte) (AssetID, []byte, error) {
	var id AssetID
	if len(src) < assetIDWireSize {
		return id, nil, ErrTruncatedMsg
	}
	copy(id.Origin[:], src[:ed25519.PublicKeySize])
	id.Index = AssetIndex(binary.BigEndian.Uint32(src[ed25519.PublicKeySize:assetIDWireSize]))
	return id, src[assetIDWireSize:], nil
}

// EncodeMsg renders the canonical byte form of a payload.
func EncodeMsg(m Msg) ([]byte, error) {
	switch m.Kind {
	case MsgAssetDataRequest:
		out := make([]byte, 0, 1+assetIDWireSize)
		out = append(out, byte(MsgAssetDataRequest))
		return appendAssetID(out, m.Asset), nil
	case MsgAssetData:
		out := make([]byte, 0, 1+assetIDWireSize+8+len(m.Data))
		out = append(out, byte(MsgAssetData))
		out = appendAssetID(out, m.Asset)
		out = binary.BigEndian.AppendUint64(out, uint64(len(m.Data)))
		return append(out, m.Data...), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMsgKind, byte(m.Kind))
	}
}

// DecodeMsg parses a canonical payload, rejecting truncation, unknown tags
// and trailing garbage.
func DecodeMsg(raw []byte) (Msg, error) {
	if len(raw) < 1 {
		return Msg{}, ErrTruncatedMsg
	}
	kind, rest := MsgKind(raw[0]), raw[1:]
	asset, rest, err := parseAssetID(rest)
	if err != nil {
		return Msg{}, err
	}
	switch kind {
	case MsgAssetDataRequest:
		if len(rest) != 0 {
			return Msg{}, ErrTrailingBytes
		}
		return Msg{Kind: kind, Asset: asset}, nil
	case MsgAssetData:
		if len(rest) < 8 {
			return Msg{}, ErrTruncatedMsg
		}
		n := binary.BigEndian.Uint64(rest[:8])
		rest = rest[8:]
		if uint64(len(rest)) < n {
			return Msg{}, ErrTruncatedMsg
		}
		if uint64(len(rest)) > n {
			return Msg{}, ErrTrailingBytes
		}
		data := make(AssetData, n)
		copy(data, rest)
		return Msg{Kind: kind, Asset: asset, Data: data}, nil
	default:
		return Msg{}, fmt.Errorf("%w: 0x%02x", ErrUnknownMsgKind, byte(kind))
	}
}

//---------------------------------------------------------------------
// Signed envelope
//---------------------------------------------------------------------

// SignMsg wraps a payload in an envelope signed with k.
func SignMsg(k Keypair, m Msg) (SignedMsg, error) {
	payload, err := EncodeMsg(m)
	if err != nil {
		return SignedMsg{}, err
	}
	sm := SignedMsg{Sender: k.SiteID(), Payload: m}
	copy(sm.Sig[:], ed25519.Sign(k.Private, payload))
	return sm, nil
}

// Verify checks the envelope signature against the canonical encoding of the
// payload under the claimed sender key.
func (sm SignedMsg) Verify() error {
	payload, err := EncodeMsg(sm.Payload)
	if err != nil {
		return err
	}
	if !ed25519.Verify(sm.Sender.PublicKey(), payload, sm.Sig[:]) {
		return ErrBadSignature
	}
	return nil
}

// EncodeSignedMsg renders the full wire frame: sender key, signature,
// canonical payload. A TCP transport must carry these bytes unchanged.
func EncodeSignedMsg(sm SignedMsg) ([]byte, error) {
	payload, err := EncodeMsg(sm.Payload)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, envelopeHeaderLen+len(payload))
	out = append(out, sm.Sender[:]...)
	out = append(out, sm.Sig[:]...)
	return append(out, payload...), nil
}

// DecodeSignedMsg parses a wire frame. It does not verify the signature;
// callers decide when to pay that cost.
func DecodeSignedMsg(raw []byte) (SignedMsg, error) {
	if len(raw) < envelopeHeaderLen {
		return SignedMsg{}, ErrTruncatedMsg
	}
	var sm SignedMsg
	copy(sm.Sender[:], raw[:ed25519.PublicKeySize])
	copy(sm.Sig[:], raw[ed25519.PublicKeySize:envelopeHeaderLen])
	m, err := DecodeMsg(raw[envelopeHeaderLen:])
	if err != nil {
		return SignedMsg{}, err
	}
	sm.Payload = m
	return sm, nil
}
