package escrow

import "testing"

func TestDerivationIsDeterministic(t *testing.T) {
	buyer := newTestIdentity(0x01)
	seller := newTestIdentity(0x02)

	key := DeriveKey(buyer, seller)
	if key != DeriveKey(buyer, seller) {
		t.Fatalf("record key derivation must be deterministic")
	}
	if key == DeriveKey(seller, buyer) {
		t.Fatalf("record key must depend on role order")
	}

	vault := VaultKey(key)
	if vault == key {
		t.Fatalf("vault key must differ from record key")
	}

	salt := SaltFor(key)
	auth := AuthorityFor(key, salt)
	if auth != AuthorityFor(key, salt) {
		t.Fatalf("authority derivation must be deterministic")
	}
	if auth == AuthorityFor(key, salt+1) {
		t.Fatalf("authority must depend on the salt")
	}
	otherKey := DeriveKey(seller, buyer)
	if auth == AuthorityFor(otherKey, salt) {
		t.Fatalf("authority must depend on the record key")
	}
}
