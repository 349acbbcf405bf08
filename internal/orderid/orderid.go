// Package orderid derives the human-readable order number from an allocated
// serial. The shape (prefix, dash, zero-padded integer of at least three
// digits) is a persisted contract: it appears on receipts and in tracking
// and support conversations, so it must not change without a migration.
package orderid

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrMalformed = errors.New("order number does not match expected pattern")

var pattern = regexp.MustCompile(`^[A-Z]{2,8}-\d{3,}$`)

// Format renders the order number for an allocated serial value.
func Format(prefix string, serial uint64) string {
	return fmt.Sprintf("%s-%03d", prefix, serial)
}

// Validate checks a formatted order number against the published shape. The
// checkout transaction calls this before persisting and treats a mismatch as
// fatal: a malformed number means the allocator produced garbage, and
// persisting it would leak a broken identifier into receipts.
func Validate(no string) error {
	if !pattern.MatchString(no) {
		return ErrMalformed
	}
	return nil
}
