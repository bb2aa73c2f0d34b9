package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part used when rendering identities.
type AddressPrefix string

// TokenPrefix is the prefix for participant identities on the escrow ledger.
const TokenPrefix AddressPrefix = "tok"

const identityLength = 32

// Address represents a 32-byte ledger identity with a bech32 prefix. Buyer and
// seller identities, escrow handles and vault keys all share this width.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != identityLength {
		panic("address must be 32 bytes long")
	}
	buf := make([]byte, identityLength)
	copy(buf, b)
	return Address{prefix: prefix, bytes: buf}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// ID returns the identity as a fixed 32-byte array.
func (a Address) ID() [32]byte {
	var id [32]byte
	copy(id[:], a.bytes)
	return id
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != identityLength {
		return Address{}, fmt.Errorf("identity must be %d bytes, got %d", identityLength, len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key hex: %w", err)
	}
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

func (p *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&p.PublicKey}
}

func (p *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(p.PrivateKey)
}

// Identity derives the 32-byte ledger identity for the public key: the
// keccak256 hash of the uncompressed key material.
func (p *PublicKey) Identity() [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(ethcrypto.FromECDSAPub(p.PublicKey)))
	return id
}

// Address renders the key's identity under the token prefix.
func (p *PublicKey) Address() Address {
	id := p.Identity()
	return NewAddress(TokenPrefix, id[:])
}
