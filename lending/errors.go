// lending/errors.go
package lending

import "errors"

// Outcomes a loan or return request can fail with. Controllers match on
// these with errors.Is and translate them to HTTP statuses.
var (
	// ErrItemNotFound: the target item does not exist (or was deleted).
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotAvailable: loan requested on an already-loaned item.
	ErrItemNotAvailable = errors.New("item not available")

	// ErrItemNotLoaned: return requested on an available item.
	ErrItemNotLoaned = errors.New("item not loaned")

	// ErrNotAuthorizedToReturn: the actor is not the current borrower.
	ErrNotAuthorizedToReturn = errors.New("not authorized to return this item")

	// ErrStorageUnavailable wraps persistence faults. The whole operation
	// aborts with no partial writes; callers may retry it as a unit.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
