package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(4) // min cost keeps the test fast
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if !h.Verify(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if h.Verify(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := NewHasher(4)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatal("two hashes of the same input are identical; salt missing")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewHasher(4)
	for _, bad := range []string{"", "not-a-bcrypt-hash", "$2a$xx$garbage"} {
		if h.Verify(bad, "anything") {
			t.Fatalf("malformed hash %q verified", bad)
		}
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if h := NewHasher(99); h.Cost == 99 {
		t.Fatal("out-of-range cost not clamped")
	}
}
