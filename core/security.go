package core

// Package core – identity and signing primitives for the siteflow stack.
//
// A site's network identity IS its Ed25519 public key: there is no
// registration step and no separate naming authority. Everything here wraps
// the std-lib ed25519 implementation; no other signature scheme is in play.

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrBadPublicKey reports a key whose length is not ed25519.PublicKeySize.
	ErrBadPublicKey = errors.New("public key must be 32 bytes")
	// ErrBadSignature reports an envelope whose signature does not verify
	// against the canonical payload encoding.
	ErrBadSignature = errors.New("signature verification failed")
)

//---------------------------------------------------------------------
// Keypairs
//---------------------------------------------------------------------

// GenerateKeypair creates a fresh Ed25519 signing credential.
func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{Public: pub, Private: priv}, nil
}

// KeypairFromSeed derives the deterministic keypair for a 32-byte seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// SiteID returns the site identity bound to this keypair.
func (k Keypair) SiteID() SiteID {
	var id SiteID
	copy(id[:], k.Public)
	return id
}

// SaveKeypair writes the hex-encoded private seed to path with owner-only
// permissions.
func SaveKeypair(path string, k Keypair) error {
	seed := k.Private.Seed()
	line := hex.EncodeToString(seed) + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		return fmt.Errorf("save keypair: %w", err)
	}
	return nil
}

// LoadKeypair reads a keypair previously written by SaveKeypair.
func LoadKeypair(path string) (Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("load keypair: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return Keypair{}, fmt.Errorf("load keypair: %w", err)
	}
	return KeypairFromSeed(seed)
}

//---------------------------------------------------------------------
// Site identities
//---------------------------------------------------------------------

// SiteIDFromPublicKey converts a raw Ed25519 public key into a SiteID.
func SiteIDFromPublicKey(pub ed25519.PublicKey) (SiteID, error) {
	var id SiteID
	if len(pub) != ed25519.PublicKeySize {
		return id, ErrBadPublicKey
	}
	copy(id[:], pub)
	return id, nil
}

// PublicKey exposes the identity as a verification key.
func (s SiteID) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(s[:])
}

// Hex returns the full lowercase hex form of the identity.
func (s SiteID) Hex() string { return hex.EncodeToString(s[:]) }

// Short returns the 8-character prefix used in log lines and API paths.
func (s SiteID) Short() string { return s.Hex()[:8] }

func (s SiteID) String() string { return "site:" + s.Short() }

// SiteIDLess orders identities by raw key bytes. The planner relies on this
// for deterministic site selection.
func SiteIDLess(a, b SiteID) bool { return bytes.Compare(a[:], b[:]) < 0 }

// ParseSiteID decodes the full hex form produced by Hex.
func ParseSiteID(s string) (SiteID, error) {
	var id SiteID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse site id: %w", err)
	}
	if len(raw) != len(id) {
		return id, ErrBadPublicKey
	}
	copy(id[:], raw)
	return id, nil
}
