package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAPIKey(t *testing.T) {
	key := "relay-key-123"
	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() failed: %v", err)
	}
	if hash == "" || hash == key {
		t.Fatalf("HashAPIKey() returned %q", hash)
	}

	// Verify it's a valid bcrypt hash
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		t.Errorf("HashAPIKey() produced invalid bcrypt hash: %v", err)
	}
}

func TestHashAPIKey_Empty(t *testing.T) {
	if _, err := HashAPIKey(""); err == nil {
		t.Error("HashAPIKey(\"\") expected error, got nil")
	}
}

func TestHashAPIKey_Salted(t *testing.T) {
	hash1, _ := HashAPIKey("same-key")
	hash2, _ := HashAPIKey("same-key")

	if hash1 == hash2 {
		t.Error("HashAPIKey() produced identical hashes for same key (no salt)")
	}
}

func TestVerifyAPIKey(t *testing.T) {
	hash, _ := HashAPIKey("correct-key")

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"correct key", "correct-key", false},
		{"wrong key", "wrong-key", true},
		{"empty key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyAPIKey(hash, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err != ErrInvalidAPIKey {
				t.Errorf("VerifyAPIKey() error = %v, want ErrInvalidAPIKey", err)
			}
		})
	}
}
