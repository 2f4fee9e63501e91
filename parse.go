package merhist

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// JST is the timezone every listing and transaction date is rendered in.
var JST = time.FixedZone("JST", 9*60*60)

const (
	dateLayout         = "2006/01/02"
	datetimeLayout     = "2006/01/02 15:04"
	datetimeLayoutJa   = "2006年01月02日 15:04"
	freeShippingMarker = "送料込み"
)

// ParseDate parses a listing date like "2025/01/15".
func ParseDate(text string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(text), JST)
	if err != nil {
		return time.Time{}, Errorf(EPAGEFORMAT, "unexpected date format: %q", text)
	}
	return t, nil
}

// ParseDateTime parses a transaction timestamp. The transaction page renders
// "2025年01月15日 10:30"; the purchases list renders "2025/01/15 10:30".
func ParseDateTime(text string, japanese bool) (time.Time, error) {
	layout := datetimeLayout
	if japanese {
		layout = datetimeLayoutJa
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(text), JST)
	if err != nil {
		return time.Time{}, Errorf(EPAGEFORMAT, "unexpected datetime format: %q", text)
	}
	return t, nil
}

// ParsePrice extracts the integer yen amount from a price cell like
// "¥1,500" or "1,234,567".
func ParsePrice(text string) (int, error) {
	cleaned := strings.NewReplacer("¥", "", "￥", "", ",", "").Replace(text)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, Errorf(EPAGEFORMAT, "empty price text: %q", text)
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, Errorf(EPAGEFORMAT, "unexpected price format: %q", text)
	}
	return n, nil
}

// ParsePriceWithShipping parses a postage cell. A "送料込み" marker means the
// postage is folded into the price and reads as zero.
func ParsePriceWithShipping(text string) (int, error) {
	if strings.Contains(text, freeShippingMarker) {
		return 0, nil
	}
	return ParsePrice(text)
}

// ParseRate extracts the integer percentage from a commission rate cell
// like "10%".
func ParseRate(text string) (int, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "%", ""))
	if cleaned == "" {
		return 0, Errorf(EPAGEFORMAT, "empty rate text: %q", text)
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, Errorf(EPAGEFORMAT, "unexpected rate format: %q", text)
	}
	return n, nil
}

var soldCountRe = regexp.MustCompile(`全(\d+)件`)

// ParseSoldCount extracts the total sold count from the listing paging text,
// e.g. "1～20/全100件".
func ParseSoldCount(pagingText string) (int, error) {
	m := soldCountRe.FindStringSubmatch(pagingText)
	if m == nil {
		return 0, Errorf(EPAGEFORMAT, "unexpected paging text: %q", pagingText)
	}
	return strconv.Atoi(m[1])
}
