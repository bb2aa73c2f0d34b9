package escrow

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Domain tags keep the three derivations from colliding with each other even
// for adversarial inputs.
var (
	escrowSeed    = []byte("escrow")
	vaultSeed     = []byte("vault")
	authoritySeed = []byte("authority")
)

// Authority is the capability that moves funds out of a vault. It is computed
// from the owning record's key and stored salt, never from a private key, so
// releases can only happen through the lifecycle engine on behalf of that
// record.
type Authority [32]byte

// DeriveKey computes the record key for a (buyer, seller) pair:
// keccak256("escrow" | buyer | seller).
func DeriveKey(buyer, seller [32]byte) [32]byte {
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256(escrowSeed, buyer[:], seller[:]))
	return key
}

// VaultKey computes the custody account identity for an escrow:
// keccak256("vault" | escrowKey).
func VaultKey(escrowKey [32]byte) [32]byte {
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256(vaultSeed, escrowKey[:]))
	return key
}

// SaltFor picks the derivation salt recorded with a new escrow. Any byte
// would do; deriving it from the key keeps record contents reproducible from
// the pair alone.
func SaltFor(escrowKey [32]byte) byte {
	return ethcrypto.Keccak256(authoritySeed, escrowKey[:])[31]
}

// AuthorityFor recomputes the vault capability for a record key and salt:
// keccak256("authority" | escrowKey | salt). A release is authorized by
// structural recomputation: present the record, rebuild the capability,
// compare it to the one the vault was opened with.
func AuthorityFor(escrowKey [32]byte, salt byte) Authority {
	var auth Authority
	copy(auth[:], ethcrypto.Keccak256(authoritySeed, escrowKey[:], []byte{salt}))
	return auth
}

// SelfAuthority is the capability of a participant-owned account: the
// identity itself. Spending from such an account requires presenting the
// matching identity, which the RPC layer establishes for the caller.
func SelfAuthority(id [32]byte) Authority {
	return Authority(id)
}
