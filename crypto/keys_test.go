package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x5A}, 32)
	addr := NewAddress(TokenPrefix, raw)

	encoded := addr.String()
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if decoded.Prefix() != TokenPrefix {
		t.Fatalf("prefix = %q, want %q", decoded.Prefix(), TokenPrefix)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("decoded bytes mismatch: %x", decoded.Bytes())
	}
	if decoded.ID() != addr.ID() {
		t.Fatalf("identity mismatch after round trip")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatalf("garbage input must not decode")
	}
	// A valid bech32 string of the wrong payload width must be rejected too.
	conv, err := bech32.ConvertBits(bytes.Repeat([]byte{0x01}, 20), 8, 5, true)
	if err != nil {
		t.Fatalf("ConvertBits: %v", err)
	}
	short, err := bech32.Encode(string(TokenPrefix), conv)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := DecodeAddress(short); err == nil {
		t.Fatalf("20-byte payload must not decode as an identity")
	}
}

func TestKeyIdentity(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	id := key.PubKey().Identity()
	if id == ([32]byte{}) {
		t.Fatalf("identity must not be zero")
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != TokenPrefix {
		t.Fatalf("address prefix = %q, want %q", addr.Prefix(), TokenPrefix)
	}
	if addr.ID() != id {
		t.Fatalf("address identity must match the key identity")
	}

	restored, err := PrivateKeyFromHex(hex.EncodeToString(key.Bytes()))
	if err != nil {
		t.Fatalf("PrivateKeyFromHex: %v", err)
	}
	if restored.PubKey().Identity() != id {
		t.Fatalf("restored key must derive the same identity")
	}
}
