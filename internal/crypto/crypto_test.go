package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("GenerateMasterKey: %v", err)
	}

	plaintext := []byte("hello, personalization data")
	ct, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(ct, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := Decrypt(key, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key1, _ := GenerateMasterKey()
	key2, _ := GenerateMasterKey()

	ct, err := Encrypt(key1, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(key2, ct); err == nil {
		t.Fatal("expected error decrypting with wrong key")
	}
}

func TestDecryptTruncated(t *testing.T) {
	key, _ := GenerateMasterKey()
	ct, err := Encrypt(key, []byte("short"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(key, ct[:8]); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}

func TestDeriveUserKey(t *testing.T) {
	master, _ := GenerateMasterKey()

	k1, err := DeriveUserKey(master, "user-a")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}
	k2, err := DeriveUserKey(master, "user-a")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("same user must derive the same key")
	}

	other, err := DeriveUserKey(master, "user-b")
	if err != nil {
		t.Fatalf("DeriveUserKey: %v", err)
	}
	if bytes.Equal(k1, other) {
		t.Fatal("different users must derive different keys")
	}
}

func TestDeriveUserKeyIsolation(t *testing.T) {
	master, _ := GenerateMasterKey()

	ka, _ := DeriveUserKey(master, "alice")
	kb, _ := DeriveUserKey(master, "bob")

	ct, err := Encrypt(ka, []byte("alice's profile"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(kb, ct); err == nil {
		t.Fatal("bob's key must not decrypt alice's data")
	}
}

func TestDeriveKeyFromPassphrase(t *testing.T) {
	key, salt, err := DeriveKeyFromPassphrase("correct horse battery staple")
	if err != nil {
		t.Fatalf("DeriveKeyFromPassphrase: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length = %d, want 32", len(key))
	}
	if len(salt) == 0 {
		t.Fatal("salt must not be empty")
	}

	again, err := DeriveKeyFromPassphraseWithSalt("correct horse battery staple", salt)
	if err != nil {
		t.Fatalf("DeriveKeyFromPassphraseWithSalt: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Fatal("same passphrase and salt must derive the same key")
	}

	other, err := DeriveKeyFromPassphraseWithSalt("wrong passphrase", salt)
	if err != nil {
		t.Fatalf("DeriveKeyFromPassphraseWithSalt: %v", err)
	}
	if bytes.Equal(key, other) {
		t.Fatal("different passphrases must derive different keys")
	}
}

func TestGenerateMasterKey(t *testing.T) {
	k1, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("GenerateMasterKey: %v", err)
	}
	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}
	k2, _ := GenerateMasterKey()
	if bytes.Equal(k1, k2) {
		t.Fatal("two generated keys must differ")
	}
}
