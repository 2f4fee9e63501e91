// Package xlsx renders collected transaction records into an Excel workbook.
// It is the downstream consumer of the crawl; the crawl core only sees the
// merhist.ReportWriter interface.
package xlsx

import (
	"context"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"github.com/kimata/merhist"
	"github.com/xuri/excelize/v2"
)

// Sheet names, one per record type.
const (
	SoldSheet   = "販売"
	BoughtSheet = "購入"
)

// Thumbnail cell dimensions. Mercari thumbnails are square.
const (
	thumbRowHeight = 60
	thumbColWidth  = 12
)

// Ensure ReportWriter implements merhist.ReportWriter at compile time.
var _ merhist.ReportWriter = (*ReportWriter)(nil)

// ImageFetcher retrieves thumbnail bytes for embedding into the workbook.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ReportWriter writes one workbook with a sheet per record type. When an
// ImageFetcher is configured the thumbnail column holds the images
// themselves; otherwise it holds the image URLs.
type ReportWriter struct {
	path   string
	images ImageFetcher
}

// Option configures a ReportWriter.
type Option func(*ReportWriter)

// WithImageFetcher enables thumbnail embedding through f.
func WithImageFetcher(f ImageFetcher) Option {
	return func(w *ReportWriter) {
		w.images = f
	}
}

// NewReportWriter creates a ReportWriter targeting path.
func NewReportWriter(path string, opts ...Option) *ReportWriter {
	w := &ReportWriter{path: path}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders both record sets and saves the workbook.
func (w *ReportWriter) Write(ctx context.Context, sold, bought []*merhist.Item, thumbnails bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSheet(ctx, f, SoldSheet, sold, thumbnails); err != nil {
		return err
	}
	if err := w.writeSheet(ctx, f, BoughtSheet, bought, thumbnails); err != nil {
		return err
	}

	// Drop the default sheet excelize starts with.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "removing default sheet")
	}

	if err := f.SaveAs(w.path); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "saving report to %s", w.path)
	}
	return nil
}

func (w *ReportWriter) writeSheet(ctx context.Context, f *excelize.File, sheet string, items []*merhist.Item, thumbnails bool) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "creating sheet %s", sheet)
	}

	header := []any{
		"ID", "商品名", "購入日時", "価格", "販売手数料", "送料", "手数料率", "利益",
		"取引完了日", "カテゴリー", "商品の状態", "配送料の負担", "発送元の地域",
		"配送の方法", "URL", "備考",
	}
	if thumbnails {
		header = append(header, "サムネイル")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "writing header for %s", sheet)
	}

	embed := thumbnails && w.images != nil
	if embed {
		col, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return merhist.WrapErrorf(err, merhist.EINTERNAL, "resolving thumbnail column")
		}
		if err := f.SetColWidth(sheet, col, col, thumbColWidth); err != nil {
			return merhist.WrapErrorf(err, merhist.EINTERNAL, "sizing thumbnail column")
		}
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []any{
			item.ID,
			item.Name,
			formatDate(item.PurchaseDate),
			item.Price,
			item.Commission,
			item.Postage,
			item.CommissionRate,
			item.Profit,
			formatDate(item.CompletionDate),
			strings.Join(item.Category, " > "),
			item.Condition,
			item.PostageCharge,
			item.SellerRegion,
			item.ShippingMethod,
			item.ItemURL,
			item.Error,
		}
		if thumbnails && !embed {
			row = append(row, item.ThumbnailURL)
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return merhist.WrapErrorf(err, merhist.EINTERNAL, "writing row %d of %s", i+2, sheet)
		}
		if embed {
			if err := w.embedThumbnail(ctx, f, sheet, len(header), i+2, item.ThumbnailURL); err != nil {
				return err
			}
		}
	}
	return nil
}

// embedThumbnail places the item image into the thumbnail column. A failed
// download degrades to the URL as cell text rather than failing the report.
func (w *ReportWriter) embedThumbnail(ctx context.Context, f *excelize.File, sheet string, col, row int, url string) error {
	if url == "" {
		return nil
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "resolving thumbnail cell")
	}

	data, err := w.images.Fetch(ctx, url)
	if err != nil {
		if err := f.SetCellValue(sheet, cell, url); err != nil {
			return merhist.WrapErrorf(err, merhist.EINTERNAL, "writing thumbnail url at %s", cell)
		}
		return nil
	}

	pic := &excelize.Picture{
		Extension: imageExtension(url),
		File:      data,
		Format:    &excelize.GraphicOptions{AutoFit: true},
	}
	if err := f.AddPictureFromBytes(sheet, cell, pic); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "embedding thumbnail at %s", cell)
	}
	if err := f.SetRowHeight(sheet, row, thumbRowHeight); err != nil {
		return merhist.WrapErrorf(err, merhist.EINTERNAL, "sizing row %d", row)
	}
	return nil
}

// imageExtension guesses the picture format from the URL path. Mercari
// thumbnails are JPEG unless the URL says otherwise.
func imageExtension(url string) string {
	switch ext := strings.ToLower(path.Ext(stripQuery(url))); ext {
	case ".png", ".gif", ".webp", ".jpg", ".jpeg":
		return ext
	default:
		return ".jpg"
	}
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(merhist.JST).Format("2006/01/02 15:04")
}
