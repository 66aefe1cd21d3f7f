package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	secrets := []string{
		"sk-1234567890abcdef",
		"",
		"exactly-16-bytes",
		strings.Repeat("long-key-", 50),
	}
	for _, secret := range secrets {
		encrypted, err := codec.Encrypt(secret)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}

		decrypted, err := codec.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if decrypted != secret {
			t.Errorf("Round trip mismatch: got %q, want %q", decrypted, secret)
		}
	}
}

func TestEncryptFormat(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	encrypted, err := codec.Encrypt("api-key")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	ivHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		t.Fatalf("Expected iv:ciphertext format, got %q", encrypted)
	}
	if len(ivHex) != 32 {
		t.Errorf("Expected 16-byte hex IV, got %d hex chars", len(ivHex))
	}
	if len(dataHex)%32 != 0 || len(dataHex) == 0 {
		t.Errorf("Expected whole hex blocks, got %d hex chars", len(dataHex))
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	a, _ := codec.Encrypt("same-plaintext")
	b, _ := codec.Encrypt("same-plaintext")
	if a == b {
		t.Error("Two encryptions of the same plaintext must differ")
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	inputs := []string{
		"",
		"no-separator",
		"zz:aabb",
		"aabb:zz",
		"aabb:aabbccdd", // IV too short
	}
	for _, input := range inputs {
		if _, err := codec.Decrypt(input); err == nil {
			t.Errorf("Expected error for input %q", input)
		}
	}
}

func TestDecryptWithWrongSecretFails(t *testing.T) {
	codec, _ := NewCodec("right-secret")
	other, _ := NewCodec("wrong-secret")

	encrypted, _ := codec.Encrypt("sk-key")
	if plain, err := other.Decrypt(encrypted); err == nil && plain == "sk-key" {
		t.Error("Wrong secret must not recover the plaintext")
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}
