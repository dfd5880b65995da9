package crypto

import (
	"errors"
	"testing"
)

func TestKZGPointEvaluationInputChecks(t *testing.T) {
	if _, err := KZGPointEvaluation(make([]byte, 191)); !errors.Is(err, ErrKZGInputLength) {
		t.Fatalf("short input: got %v", err)
	}
	// A zero versioned hash never matches 0x01 || sha256(commitment)[1:].
	if _, err := KZGPointEvaluation(make([]byte, KZGPointEvalInputLength)); !errors.Is(err, ErrKZGVersionedHash) {
		t.Fatalf("versioned hash: got %v", err)
	}
}

func TestKZGToVersionedHash(t *testing.T) {
	h := KZGToVersionedHash(make([]byte, 48))
	if h[0] != KZGVersionedHashVersion {
		t.Fatalf("version byte = %#x", h[0])
	}
}
