package password

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	ok, err := h.Verify("correct-horse", encoded)
	if err != nil || !ok {
		t.Fatalf("verify correct password = %v, %v", ok, err)
	}

	ok, err = h.Verify("wrong-horse!", encoded)
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := testHasher(t)

	first, _ := h.Hash("correct-horse")
	second, _ := h.Hash("correct-horse")
	if first == second {
		t.Fatal("identical hashes for two calls, salt not applied")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := testHasher(t)
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("7-byte password accepted")
	}
}

func TestVerifyRejectsMalformedEncodings(t *testing.T) {
	h := testHasher(t)

	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		if _, err := h.Verify("whatever1", encoded); err == nil {
			t.Fatalf("malformed encoding %q accepted", encoded)
		}
	}
}

func TestNewHasherEnforcesFloors(t *testing.T) {
	base := Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

	weak := base
	weak.Memory = 1024
	if _, err := NewHasher(weak); err == nil {
		t.Fatal("weak memory accepted")
	}

	weak = base
	weak.SaltLength = 8
	if _, err := NewHasher(weak); err == nil {
		t.Fatal("short salt accepted")
	}

	weak = base
	weak.KeyLength = 8
	if _, err := NewHasher(weak); err == nil {
		t.Fatal("short key accepted")
	}
}
