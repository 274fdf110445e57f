package core

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// testKeypair derives a deterministic keypair from a single seed byte so
// tests are reproducible run to run.
func testKeypair(t *testing.T, seed byte) Keypair {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed
	}
	kp, err := KeypairFromSeed(raw)
	if err != nil {
		t.Fatalf("keypair from seed: %v", err)
	}
	return kp
}

func quietLogger() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}

// fastEngine keeps protocol tests well under a second.
func fastEngine() EngineConfig {
	return EngineConfig{
		RequestPeriod: 30 * time.Millisecond,
		RecvTimeout:   250 * time.Millisecond,
	}
}
