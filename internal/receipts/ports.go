// Package receipts stores payment receipts outside the relational
// store. The rest of the system only ever holds the returned URL.
package receipts

import (
	"context"
	"io"
)

// Uploader is the receipt storage port.
type Uploader interface {
	// Upload stores the file content under name and returns a viewable URL.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)

	// Delete removes the file a previous Upload returned url for.
	Delete(ctx context.Context, url string) error
}
