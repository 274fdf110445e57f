package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeRequestLayout(t *testing.T) {
	kp := testKeypair(t, 1)
	asset := AssetID{Origin: kp.SiteID(), Index: 0x01020304}
	raw, err := EncodeMsg(Msg{Kind: MsgAssetDataRequest, Asset: asset})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(raw) != 1+32+4 {
		t.Fatalf("request payload should be 37 bytes, got %d", len(raw))
	}
	if raw[0] != 0x00 {
		t.Fatalf("request tag should be 0x00, got 0x%02x", raw[0])
	}
	if !bytes.Equal(raw[1:33], kp.Public) {
		t.Fatalf("origin bytes mismatch")
	}
	if binary.BigEndian.Uint32(raw[33:37]) != 0x01020304 {
		t.Fatalf("index should be big-endian")
	}
}

func TestMsgRoundtrip(t *testing.T) {
	asset := AssetID{Origin: testKeypair(t, 2).SiteID(), Index: 7}
	for _, m := range []Msg{
		{Kind: MsgAssetDataRequest, Asset: asset},
		{Kind: MsgAssetData, Asset: asset, Data: AssetData("payload bytes")},
		{Kind: MsgAssetData, Asset: asset, Data: AssetData{}},
	} {
		raw, err := EncodeMsg(m)
		if err != nil {
			t.Fatalf("encode %s: %v", m, err)
		}
		got, err := DecodeMsg(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", m, err)
		}
		if got.Kind != m.Kind || got.Asset != m.Asset || !bytes.Equal(got.Data, m.Data) {
			t.Fatalf("roundtrip mismatch: sent %s got %s", m, got)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	asset := AssetID{Origin: testKeypair(t, 2).SiteID(), Index: 7}
	good, err := EncodeMsg(Msg{Kind: MsgAssetData, Asset: asset, Data: AssetData("abc")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := DecodeMsg(nil); !errors.Is(err, ErrTruncatedMsg) {
		t.Fatalf("empty input: expected ErrTruncatedMsg, got %v", err)
	}
	if _, err := DecodeMsg(good[:10]); !errors.Is(err, ErrTruncatedMsg) {
		t.Fatalf("truncated input: expected ErrTruncatedMsg, got %v", err)
	}
	bad := append([]byte(nil), good...)
	bad[0] = 0x7f
	if _, err := DecodeMsg(bad); !errors.Is(err, ErrUnknownMsgKind) {
		t.Fatalf("unknown tag: expected ErrUnknownMsgKind, got %v", err)
	}
	trailing := append(append([]byte(nil), good...), 0x00)
	if _, err := DecodeMsg(trailing); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("trailing byte: expected ErrTrailingBytes, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	kp := testKeypair(t, 3)
	asset := AssetID{Origin: kp.SiteID(), Index: 1}
	m := Msg{Kind: MsgAssetData, Asset: asset, Data: AssetData("hello")}

	sm, err := SignMsg(kp, m)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sm.Sender != kp.SiteID() {
		t.Fatalf("envelope sender should be the signing identity")
	}
	if err := sm.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp, other := testKeypair(t, 3), testKeypair(t, 4)
	m := Msg{Kind: MsgAssetDataRequest, Asset: AssetID{Origin: kp.SiteID(), Index: 1}}
	sm, err := SignMsg(kp, m)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sm.Sender = other.SiteID()
	if err := sm.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsMutatedPayload(t *testing.T) {
	kp := testKeypair(t, 3)
	m := Msg{Kind: MsgAssetData, Asset: AssetID{Origin: kp.SiteID(), Index: 1}, Data: AssetData("hello")}
	sm, err := SignMsg(kp, m)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sm.Payload.Data[0] ^= 0x01
	if err := sm.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("single-bit mutation should fail verification, got %v", err)
	}
}

func TestSignedMsgFrameRoundtrip(t *testing.T) {
	kp := testKeypair(t, 5)
	m := Msg{Kind: MsgAssetData, Asset: AssetID{Origin: kp.SiteID(), Index: 9}, Data: AssetData("frame")}
	sm, err := SignMsg(kp, m)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	raw, err := EncodeSignedMsg(sm)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	got, err := DecodeSignedMsg(raw)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got.Sender != sm.Sender || got.Sig != sm.Sig {
		t.Fatalf("frame header mismatch")
	}
	if err := got.Verify(); err != nil {
		t.Fatalf("decoded frame should verify: %v", err)
	}

	raw[len(raw)-1] ^= 0x01
	mutated, err := DecodeSignedMsg(raw)
	if err != nil {
		t.Fatalf("decode mutated frame: %v", err)
	}
	if err := mutated.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("mutated frame should fail verification, got %v", err)
	}
}
