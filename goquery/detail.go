package goquery

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kimata/merhist"
)

// Description holds the fields extracted from an item description page.
type Description struct {
	Category       []string
	Condition      string
	PostageCharge  string
	SellerRegion   string
	ShippingMethod string

	// Note is set instead of an error when the page renders an empty state
	// (item not found or deleted). The record is still persisted with the
	// note attached.
	Note string
}

// Description-page row titles.
const (
	rowTitleCategory       = "カテゴリー"
	rowTitleCondition      = "商品の状態"
	rowTitlePostageCharge  = "配送料の負担"
	rowTitleSellerRegion   = "発送元の地域"
	rowTitleShippingMethod = "配送の方法"
)

// Transaction-page row titles.
const (
	rowTitlePurchaseDate = "購入日時"
	rowTitlePrice        = "商品代金"
	rowTitlePostage      = "送料"
)

// Empty-state notes recorded on the item.
const (
	NoteNotFound = "商品情報ページが見つかりませんでした"
	NoteDeleted  = "商品情報ページが削除されています"
)

// ExtractDescription extracts the item information rows from a description
// page. A not-found or deleted empty state is reported via Note, not an
// error, because the transaction record is still worth keeping.
func ExtractDescription(html string) (*Description, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	if note := emptyStateNote(doc); note != "" {
		return &Description{Note: note}, nil
	}

	desc := &Description{}
	doc.Find(descInfoRow).Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(descRowTitle).First().Text())
		switch title {
		case rowTitleCategory:
			row.Find(descCategoryLink).Each(func(_ int, a *goquery.Selection) {
				desc.Category = append(desc.Category, strings.TrimSpace(a.Text()))
			})
		case rowTitleCondition:
			desc.Condition = rowBody(row)
		case rowTitlePostageCharge:
			desc.PostageCharge = rowBody(row)
		case rowTitleSellerRegion:
			desc.SellerRegion = rowBody(row)
		case rowTitleShippingMethod:
			desc.ShippingMethod = rowBody(row)
		}
	})

	return desc, nil
}

func rowBody(row *goquery.Selection) string {
	return strings.TrimSpace(row.Find(descRowBody).First().Text())
}

func emptyStateNote(doc *goquery.Document) string {
	note := ""
	doc.Find(emptyStateText).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		switch {
		case strings.Contains(text, textNotFound):
			note = NoteNotFound
		case strings.Contains(text, textDeleted):
			note = NoteDeleted
		default:
			return true
		}
		return false
	})
	return note
}

// Transaction holds the fields extracted from a transaction page.
type Transaction struct {
	PurchaseDate time.Time
	Price        int
	Postage      int
	ThumbnailURL string
}

// ExtractTransactionNormal extracts purchase date, price, and postage from a
// normal Mercari transaction page. A load-failure empty state is EPAGELOAD
// (transient, retried); a page without the mandatory purchase date row is
// EPAGEFORMAT (structural, never retried).
func ExtractTransactionNormal(html string) (*Transaction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	if loadFailed(doc) {
		return nil, merhist.Errorf(merhist.EPAGELOAD, "transaction page failed to load")
	}

	tx := &Transaction{}
	var rowErr error
	hasDate := false
	doc.Find(transactionInfoRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		title := strings.TrimSpace(row.Find(descRowTitle).First().Text())
		switch title {
		case rowTitlePurchaseDate:
			tx.PurchaseDate, rowErr = merhist.ParseDateTime(rowBody(row), true)
			hasDate = rowErr == nil
		case rowTitlePrice:
			number := row.Find(transactionNumber).First().Text()
			if number == "" {
				number = rowBody(row)
			}
			tx.Price, rowErr = merhist.ParsePrice(number)
		case rowTitlePostage:
			tx.Postage, rowErr = merhist.ParsePriceWithShipping(rowBody(row))
		}
		return rowErr == nil
	})
	if rowErr != nil {
		return nil, rowErr
	}

	if !hasDate {
		return nil, merhist.Errorf(merhist.EPAGEFORMAT, "transaction page has no purchase date row")
	}

	if thumb, ok := doc.Find(transactionThumb).First().Attr("src"); ok {
		tx.ThumbnailURL = thumb
	}

	return tx, nil
}

// ExtractTransactionShops extracts the price and thumbnail from a Mercari
// Shops order page. Shops pages render no purchase date; the caller falls
// back to the listing timestamp.
func ExtractTransactionShops(html string) (*Transaction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	payment := doc.Find(shopsPaymentCell).First()
	if payment.Length() == 0 {
		return nil, merhist.Errorf(merhist.EPAGEFORMAT, "shops order page has no payment section")
	}

	priceText := ""
	payment.ParentsFiltered("li").First().Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.ContainsAny(sel.Text(), "￥¥") {
			priceText = sel.Text()
			return false
		}
		return true
	})
	if priceText == "" {
		return nil, merhist.Errorf(merhist.EPAGEFORMAT, "shops order page has no price")
	}

	price, err := merhist.ParsePrice(priceText)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{Price: price}
	if thumb, ok := doc.Find(shopsThumb).First().Attr("src"); ok {
		tx.ThumbnailURL = thumb
	}

	return tx, nil
}

func loadFailed(doc *goquery.Document) bool {
	failed := false
	doc.Find(emptyStateText).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), textLoadFailed) {
			failed = true
			return false
		}
		return true
	})
	return failed
}
