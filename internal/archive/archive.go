// Package archive stores rendered invoice documents.
package archive

import (
	"fmt"
	"strings"
)

// checkInvoiceID rejects ids that cannot be used as a file name or object key.
func checkInvoiceID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid invoice id %q", id)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid invoice id %q: contains a path separator", id)
	}
	return nil
}
