package escrow

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MaxItemNameLength bounds the free-text label persisted with each record.
const MaxItemNameLength = 50

// recordSize is the fixed persisted footprint: buyer (32) + seller (32) +
// amount (8) + item name length prefix (4) + item name payload (50) +
// completed flag (1) + derivation salt (1).
const recordSize = 32 + 32 + 8 + 4 + MaxItemNameLength + 1 + 1

// Escrow is the durable record tracking one trade between a buyer and a
// seller. Buyer, Seller, Amount, ItemName and Salt are fixed at creation;
// only IsCompleted changes afterwards, and only from false to true.
type Escrow struct {
	Buyer       [32]byte
	Seller      [32]byte
	Amount      uint64
	ItemName    string
	IsCompleted bool
	Salt        byte
}

// Key returns the record's derived storage key. The derivation is
// deterministic over the pair, so at most one record can exist per
// (buyer, seller) at a time.
func (e *Escrow) Key() [32]byte {
	return DeriveKey(e.Buyer, e.Seller)
}

// Clone returns a copy callers can mutate without affecting the stored
// instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// ValidateItemName checks the label against the persisted bound and rejects
// malformed text.
func ValidateItemName(name string) error {
	if len(name) > MaxItemNameLength {
		return ErrItemNameTooLong
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("escrow: item name is not valid UTF-8")
	}
	return nil
}

// MarshalBinary encodes the record into its fixed 128-byte layout. The layout
// is part of the external interface and must not change: little-endian
// integers, a u32 length prefix and a zero-padded 50-byte name field.
func (e *Escrow) MarshalBinary() ([]byte, error) {
	if err := ValidateItemName(e.ItemName); err != nil {
		return nil, err
	}
	buf := make([]byte, recordSize)
	copy(buf[0:32], e.Buyer[:])
	copy(buf[32:64], e.Seller[:])
	binary.LittleEndian.PutUint64(buf[64:72], e.Amount)
	binary.LittleEndian.PutUint32(buf[72:76], uint32(len(e.ItemName)))
	copy(buf[76:76+MaxItemNameLength], e.ItemName)
	if e.IsCompleted {
		buf[126] = 1
	}
	buf[127] = e.Salt
	return buf, nil
}

// UnmarshalBinary decodes a record from its fixed layout.
func (e *Escrow) UnmarshalBinary(data []byte) error {
	if len(data) != recordSize {
		return fmt.Errorf("escrow: record must be %d bytes, got %d", recordSize, len(data))
	}
	copy(e.Buyer[:], data[0:32])
	copy(e.Seller[:], data[32:64])
	e.Amount = binary.LittleEndian.Uint64(data[64:72])
	nameLen := binary.LittleEndian.Uint32(data[72:76])
	if nameLen > MaxItemNameLength {
		return fmt.Errorf("escrow: item name length %d out of range", nameLen)
	}
	e.ItemName = string(data[76 : 76+nameLen])
	switch data[126] {
	case 0:
		e.IsCompleted = false
	case 1:
		e.IsCompleted = true
	default:
		return fmt.Errorf("escrow: invalid completed flag %d", data[126])
	}
	e.Salt = data[127]
	return nil
}
