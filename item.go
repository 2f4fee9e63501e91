package merhist

import (
	"fmt"
	"regexp"
	"time"
)

// RecordType distinguishes the two transaction histories.
type RecordType string

// RecordType values.
const (
	Sold   RecordType = "sold"
	Bought RecordType = "bought"
)

// RecordTypes lists the record types in crawl order.
func RecordTypes() []RecordType {
	return []RecordType{Sold, Bought}
}

// Shop identifies which storefront an order belongs to. Normal Mercari and
// Mercari Shops orders use different URL shapes and page layouts.
type Shop string

// Shop values.
const (
	ShopNormal Shop = "mercari.com"
	ShopShops  Shop = "mercari-shops.com"
)

// Listing and item page URL templates.
const (
	TopURL           = "https://jp.mercari.com"
	LoginURL         = "https://jp.mercari.com/signin"
	BoughtHistoryURL = "https://jp.mercari.com/mypage/purchases"
	soldHistoryURL   = "https://jp.mercari.com/mypage/listings/sold?page=%d"

	normalTransactionURL = "https://jp.mercari.com/transaction/%s"
	shopsTransactionURL  = "https://mercari-shops.com/orders/%s"

	normalDescriptionURL = "https://jp.mercari.com/item/%s"
	shopsDescriptionURL  = "https://jp.mercari.com/shops/product/%s"
)

// SoldItemsPerPage is the fixed row count of the sold listing table.
const SoldItemsPerPage = 20

// SoldHistoryURL returns the sold listing URL for a page index (1-based).
func SoldHistoryURL(page int) string {
	return fmt.Sprintf(soldHistoryURL, page)
}

// OrderRef is a lightweight pointer to one remote transaction, produced by
// listing traversal. It is never persisted on its own; it only drives the
// detail fetch.
type OrderRef struct {
	ID         string
	RecordType RecordType
	Shop       Shop
	Name       string
	OrderURL   string
	Page       int // listing page (sold) or load-more round (bought) it came from

	// PurchaseDate is the timestamp shown on the bought listing row. It is
	// the only date source for shops orders, whose transaction page does
	// not render one.
	PurchaseDate time.Time

	// Sold carries the figures that exist only on the sold listing row;
	// nil for bought references.
	Sold *SoldFigures
}

// SoldFigures holds the sold-listing columns that never appear on the item
// detail pages. They travel with the reference into the final record.
type SoldFigures struct {
	Price          int
	Commission     int
	Postage        int
	CommissionRate int
	Profit         int
	CompletionDate time.Time
}

// TransactionURL returns the order's transaction page URL.
func (r OrderRef) TransactionURL() string {
	if r.Shop == ShopShops {
		return fmt.Sprintf(shopsTransactionURL, r.ID)
	}
	return fmt.Sprintf(normalTransactionURL, r.ID)
}

// DescriptionURL returns the order's item description page URL.
func (r OrderRef) DescriptionURL() string {
	if r.Shop == ShopShops {
		return fmt.Sprintf(shopsDescriptionURL, r.ID)
	}
	return fmt.Sprintf(normalDescriptionURL, r.ID)
}

var (
	normalOrderRe = regexp.MustCompile(`mercari\.com.*/(m\d+)/?`)
	shopsOrderRe  = regexp.MustCompile(`mercari-shops\.com.*/orders/(\w+)/?`)
)

// ParseOrderURL extracts the item ID and shop kind from an order URL.
// Returns EURLFORMAT if the URL matches neither storefront shape.
func ParseOrderURL(orderURL string) (id string, shop Shop, err error) {
	if m := shopsOrderRe.FindStringSubmatch(orderURL); m != nil {
		return m[1], ShopShops, nil
	}
	if m := normalOrderRe.FindStringSubmatch(orderURL); m != nil {
		return m[1], ShopNormal, nil
	}
	return "", "", Errorf(EURLFORMAT, "unexpected order URL format: %s", orderURL)
}

// Item is the fully extracted, persisted representation of one transaction.
// A forced re-fetch replaces the stored row wholesale; fields are never
// merged with a previous fetch.
type Item struct {
	ID         string     `json:"id"`
	RecordType RecordType `json:"recordType"`
	Shop       Shop       `json:"shop"`
	Name       string     `json:"name"`
	OrderURL   string     `json:"orderUrl"`
	ItemURL    string     `json:"itemUrl"`
	Count      int        `json:"count"`

	Category       []string `json:"category"`
	Condition      string   `json:"condition"`
	PostageCharge  string   `json:"postageCharge"`
	SellerRegion   string   `json:"sellerRegion"`
	ShippingMethod string   `json:"shippingMethod"`

	PurchaseDate   time.Time `json:"purchaseDate"`
	Price          int       `json:"price"`
	Commission     int       `json:"commission"`      // sold only
	Postage        int       `json:"postage"`         // sold only
	CommissionRate int       `json:"commissionRate"`  // sold only, percent
	Profit         int       `json:"profit"`          // sold only
	CompletionDate time.Time `json:"completionDate"`  // sold only

	ThumbnailURL string `json:"thumbnailUrl"`

	// Error records a per-item extraction note (e.g., the description page
	// has been deleted). The item is still persisted.
	Error string `json:"error,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Validate returns an error if the item cannot be persisted.
func (it *Item) Validate() error {
	if it.ID == "" {
		return Errorf(EINVALID, "item ID required")
	}
	if it.RecordType != Sold && it.RecordType != Bought {
		return Errorf(EINVALID, "unknown record type %q", it.RecordType)
	}
	return nil
}

// ForceScope selects record types whose cache hits are ignored for one run.
// New results still overwrite the store rather than append to it.
type ForceScope map[RecordType]bool

// Has reports whether t is in the scope.
func (s ForceScope) Has(t RecordType) bool {
	return s[t]
}

// NewForceScope builds a scope from the CLI force flags.
func NewForceScope(all, sold, bought bool) ForceScope {
	return ForceScope{
		Sold:   all || sold,
		Bought: all || bought,
	}
}
