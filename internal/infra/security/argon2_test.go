package security

import (
	"errors"
	"strings"
	"testing"
)

// fastArgon2Config keeps hashing cheap enough for the suite while
// staying above the validation floor.
func fastArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	}
}

func TestArgon2HashRoundTrip(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}

	encoded, err := hasher.Hash("Sup3rSecret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format %q", encoded)
	}

	ok, err := hasher.Verify("Sup3rSecret!", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = hasher.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("Verify wrong: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestArgon2HashesAreSalted(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}

	first, err := hasher.Hash("Sup3rSecret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := hasher.Hash("Sup3rSecret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestArgon2VerifyAcrossParameterChanges(t *testing.T) {
	old, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	encoded, err := old.Hash("Sup3rSecret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	// Parameters are read from the encoded hash, so hashes created
	// under older settings keep verifying after a tuning change.
	current, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	ok, err := current.Verify("Sup3rSecret!", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("hash created under older parameters rejected")
	}
}

func TestArgon2VerifyRejectsMalformedHashes(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}

	// Blank inputs are a plain mismatch, not an error.
	if ok, err := hasher.Verify("x", ""); ok || err != nil {
		t.Fatalf("blank hash: ok=%v err=%v", ok, err)
	}

	structural := []string{
		"plain-text",
		"md5$abc$def",
		"argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$aGFzaA",
	}
	for _, encoded := range structural {
		if _, err := hasher.Verify("x", encoded); !errors.Is(err, errInvalidHashFormat) {
			t.Errorf("Verify(%q): expected format error, got %v", encoded, err)
		}
	}

	rejected := []string{
		"argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}
	for _, encoded := range rejected {
		if _, err := hasher.Verify("x", encoded); err == nil {
			t.Errorf("Verify(%q): expected an error", encoded)
		}
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Argon2Config
	}{
		{"low memory", Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}},
		{"zero iterations", Argon2Config{Memory: 65536, Iterations: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32}},
		{"zero parallelism", Argon2Config{Memory: 65536, Iterations: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32}},
		{"short salt", Argon2Config{Memory: 65536, Iterations: 1, Parallelism: 1, SaltLength: 4, KeyLength: 32}},
		{"short key", Argon2Config{Memory: 65536, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewArgon2Hasher(tc.cfg); !errors.Is(err, errInvalidConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}
