package keys

import (
	"testing"
)

func TestGenerateAndVerify(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	message := []byte("hello archive")
	signature := pair.Sign(message)
	if !Verify(pair.Public, message, signature) {
		t.Fatal("signature did not verify against the generated public key")
	}

	tampered := []byte("hello archiv3")
	if Verify(pair.Public, tampered, signature) {
		t.Fatal("signature verified against tampered message")
	}
}

func TestDiscoveryIsDeterministicAndOneWay(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	d1 := Discovery(pair.Public)
	d2 := Discovery(pair.Public)
	if d1 != d2 {
		t.Fatal("discovery key derivation is not deterministic")
	}

	other, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if Discovery(other.Public) == d1 {
		t.Fatal("distinct keys produced colliding discovery keys")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	parsed, err := ParseKey(pair.Public.Hex())
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if parsed != pair.Public {
		t.Fatal("parsed key does not match original")
	}
}

func TestParseKeyRejectsBadLength(t *testing.T) {
	if _, err := ParseKey("deadbeef"); err == nil {
		t.Fatal("expected error for short hex key")
	}
}
