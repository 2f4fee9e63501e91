package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kimata/merhist"
)

// Sold table column positions (1-based, matching the rendered table).
const (
	soldColName           = 1
	soldColPrice          = 2
	soldColCommission     = 3
	soldColPostage        = 4
	soldColCommissionRate = 6
	soldColProfit         = 7
	soldColCompletionDate = 9
)

// SoldTotal extracts the total sold count from a sold listing page's paging
// text ("1～20/全100件").
func SoldTotal(html string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	var pagingText string
	doc.Find(soldPagingText).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if strings.Contains(text, "全") && strings.Contains(text, "件") {
			pagingText = text
			return false
		}
		return true
	})
	if pagingText == "" {
		return 0, merhist.Errorf(merhist.EPAGEFORMAT, "sold listing paging text not found")
	}

	return merhist.ParseSoldCount(pagingText)
}

// SoldRows extracts order references from one page of the sold listing
// table. Rows arrive newest first.
func SoldRows(html string, page int) ([]merhist.OrderRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	var refs []merhist.OrderRef
	var rowErr error
	doc.Find(soldListRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		ref, err := soldRow(row, page)
		if err != nil {
			rowErr = err
			return false
		}
		refs = append(refs, ref)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return refs, nil
}

func soldRow(row *goquery.Selection, page int) (merhist.OrderRef, error) {
	cells := row.Find("td")

	cell := func(pos int) *goquery.Selection {
		return cells.Eq(pos - 1)
	}

	link := cell(soldColName).Find(soldItemLink)
	if link.Length() == 0 {
		link = cell(soldColName).Find("a")
	}
	orderURL, ok := link.Attr("href")
	if !ok || orderURL == "" {
		return merhist.OrderRef{}, merhist.Errorf(merhist.EPAGEFORMAT, "sold row has no order link")
	}

	id, shop, err := merhist.ParseOrderURL(orderURL)
	if err != nil {
		return merhist.OrderRef{}, err
	}

	price, err := merhist.ParsePrice(cell(soldColPrice).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}
	commission, err := merhist.ParsePrice(cell(soldColCommission).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}
	postage, err := merhist.ParsePriceWithShipping(cell(soldColPostage).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}
	rate, err := merhist.ParseRate(cell(soldColCommissionRate).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}
	profit, err := merhist.ParsePrice(cell(soldColProfit).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}
	completion, err := merhist.ParseDate(cell(soldColCompletionDate).Text())
	if err != nil {
		return merhist.OrderRef{}, err
	}

	return merhist.OrderRef{
		ID:         id,
		RecordType: merhist.Sold,
		Shop:       shop,
		Name:       strings.TrimSpace(link.Text()),
		OrderURL:   orderURL,
		Page:       page,
		Sold: &merhist.SoldFigures{
			Price:          price,
			Commission:     commission,
			Postage:        postage,
			CommissionRate: rate,
			Profit:         profit,
			CompletionDate: completion,
		},
	}, nil
}

var boughtDatetimeRe = regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}`)

// BoughtRows extracts order references from the purchases list, skipping the
// first offset rows (the load-more control grows the list in place, so
// earlier rows have already been seen). Returns the new references and the
// total row count, which becomes the next offset.
func BoughtRows(html string, offset, page int) ([]merhist.OrderRef, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, merhist.Errorf(merhist.EINVALID, "failed to parse HTML: %v", err)
	}

	rows := doc.Find(boughtListRow)
	total := rows.Length()
	if total < offset {
		return nil, 0, merhist.Errorf(merhist.EPAGELOAD,
			"purchase list shrank: have %d rows, expected at least %d", total, offset)
	}

	var refs []merhist.OrderRef
	var rowErr error
	rows.Slice(offset, total).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		ref, err := boughtRow(row, page)
		if err != nil {
			rowErr = err
			return false
		}
		refs = append(refs, ref)
		return true
	})
	if rowErr != nil {
		return nil, 0, rowErr
	}

	return refs, total, nil
}

func boughtRow(row *goquery.Selection, page int) (merhist.OrderRef, error) {
	orderURL, ok := row.Find("a").First().Attr("href")
	if !ok || orderURL == "" {
		return merhist.OrderRef{}, merhist.Errorf(merhist.EPAGEFORMAT, "bought row has no order link")
	}
	if strings.HasPrefix(orderURL, "/") {
		orderURL = "https://jp.mercari.com" + orderURL
	}

	id, shop, err := merhist.ParseOrderURL(orderURL)
	if err != nil {
		return merhist.OrderRef{}, err
	}

	name := strings.TrimSpace(row.Find(boughtItemLabel).Text())

	dateText := boughtDatetimeRe.FindString(row.Text())
	if dateText == "" {
		return merhist.OrderRef{}, merhist.Errorf(merhist.EPAGEFORMAT, "bought row has no purchase datetime")
	}
	purchased, err := merhist.ParseDateTime(dateText, false)
	if err != nil {
		return merhist.OrderRef{}, err
	}

	return merhist.OrderRef{
		ID:           id,
		RecordType:   merhist.Bought,
		Shop:         shop,
		Name:         name,
		OrderURL:     orderURL,
		Page:         page,
		PurchaseDate: purchased,
	}, nil
}

// HasLoadMore reports whether the purchases page still renders the
// load-more control.
func HasLoadMore(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	found := false
	doc.Find("button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), TextLoadMore) {
			found = true
			return false
		}
		return true
	})
	return found
}
