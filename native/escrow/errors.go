package escrow

import "errors"

var (
	// ErrAlreadyExists is returned when a create names a (buyer, seller) pair
	// that already has a record, settled or not.
	ErrAlreadyExists = errors.New("escrow: record already exists")

	// ErrNotFound is returned when an operation references a key with no
	// stored record.
	ErrNotFound = errors.New("escrow: record not found")

	// ErrAlreadyCompleted is returned by Complete and Cancel once a record is
	// settled. Settlement is terminal; the flag never flips back.
	ErrAlreadyCompleted = errors.New("escrow: already completed")

	// ErrUnauthorizedCancel is returned when a cancel caller is not the
	// record's buyer.
	ErrUnauthorizedCancel = errors.New("escrow: only the buyer can cancel")

	// ErrUnauthorizedComplete is returned when a complete caller is not the
	// record's seller.
	ErrUnauthorizedComplete = errors.New("escrow: only the seller can complete")

	// ErrAuthorityMismatch is returned when a custody transfer presents an
	// authority that does not match the source account's recorded one.
	ErrAuthorityMismatch = errors.New("escrow: authority mismatch")

	// ErrInsufficientFunds is returned when the source account balance is
	// below the requested transfer amount.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")

	// ErrInvalidAmount rejects zero amounts at creation time.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")

	// ErrItemNameTooLong rejects item names above the persisted bound.
	ErrItemNameTooLong = errors.New("escrow: item name exceeds 50 bytes")
)
