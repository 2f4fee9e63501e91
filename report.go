package merhist

import "context"

// ReportWriter is the downstream collaborator that renders collected records
// into a document. The crawl core hands it the full, ordered record set per
// type and makes no assumption about how it renders them.
type ReportWriter interface {
	// Write renders the given records. Items arrive in store order. The
	// thumbnails flag is passed through from the command surface.
	Write(ctx context.Context, sold, bought []*Item, thumbnails bool) error
}
