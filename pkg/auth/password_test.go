package auth

import "testing"

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" || hash == "s3cret" {
		t.Fatalf("expected opaque hash, got %q", hash)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestHashPasswordRejectsBlank(t *testing.T) {
	if _, err := HashPassword("  "); err == nil {
		t.Fatalf("expected error for blank password")
	}
	if CheckPassword("anything", "") {
		t.Fatalf("empty stored hash must never match")
	}
}
