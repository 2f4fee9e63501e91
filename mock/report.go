package mock

import (
	"context"

	"github.com/kimata/merhist"
)

var _ merhist.ReportWriter = (*ReportWriter)(nil)

// ReportWriter is a mock implementation of merhist.ReportWriter.
type ReportWriter struct {
	WriteFn func(ctx context.Context, sold, bought []*merhist.Item, thumbnails bool) error
}

func (w *ReportWriter) Write(ctx context.Context, sold, bought []*merhist.Item, thumbnails bool) error {
	return w.WriteFn(ctx, sold, bought, thumbnails)
}
