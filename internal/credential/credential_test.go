package credential

import (
	"strings"
	"testing"
)

func TestManager_EncryptDecrypt(t *testing.T) {
	manager, err := NewManager()
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"empty string", ""},
		{"simple api key", "sk-1234567890abcdef"},
		{"long key", strings.Repeat("a", 1000)},
		{"unicode content", "api-key-日本語-🔑"},
		{"special chars", "key!@#$%^&*()_+-=[]{}|;':\",./<>?"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encrypted, err := manager.Encrypt(tc.plaintext)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			// Empty string should stay empty
			if tc.plaintext == "" {
				if encrypted != "" {
					t.Errorf("empty string should not be encrypted, got: %s", encrypted)
				}
				return
			}

			if !strings.HasPrefix(encrypted, EncryptedPrefix) {
				t.Errorf("encrypted value should have prefix, got: %s", encrypted)
			}
			if encrypted == tc.plaintext {
				t.Error("encrypted value should differ from plaintext")
			}

			decrypted, err := manager.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if decrypted != tc.plaintext {
				t.Errorf("decrypted value mismatch: got %q, want %q", decrypted, tc.plaintext)
			}
		})
	}
}

func TestManager_DecryptPlaintext(t *testing.T) {
	manager, err := NewManager()
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Unencrypted values should pass through for backward compatibility
	plaintext := "sk-not-encrypted"
	result, err := manager.Decrypt(plaintext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if result != plaintext {
		t.Errorf("plaintext should pass through unchanged: got %q, want %q", result, plaintext)
	}
}

func TestManager_DecryptInvalid(t *testing.T) {
	manager, err := NewManager()
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if _, err := manager.Decrypt(EncryptedPrefix + "not-base64!!!"); err == nil {
		t.Error("expected an error for invalid base64")
	}
	if _, err := manager.Decrypt(EncryptedPrefix + "YWJj"); err == nil {
		t.Error("expected an error for a truncated ciphertext")
	}
}

func TestIsEncrypted(t *testing.T) {
	if IsEncrypted("sk-plain") {
		t.Error("plain value misdetected as encrypted")
	}
	if !IsEncrypted(EncryptedPrefix + "abc") {
		t.Error("prefixed value not detected")
	}
}

func TestIsSecretKey(t *testing.T) {
	cases := map[string]bool{
		"anthropic.api_key": true,
		"tavily.api_key":    true,
		"openai.base_url":   false,
		"provider":          false,
	}
	for key, want := range cases {
		if got := IsSecretKey(key); got != want {
			t.Errorf("IsSecretKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("short"); got != "****" {
		t.Errorf("short secrets fully masked, got %q", got)
	}
	if got := MaskSecret("sk-1234567890abcdef"); got != "sk-1...cdef" {
		t.Errorf("unexpected mask: %q", got)
	}
}
