// Package goquery extracts structured transaction data from rendered
// Mercari pages. All extraction is pure string-in, struct-out so the rules
// are testable without a browser; a mandatory field the selectors cannot
// find raises EPAGEFORMAT, which signals the extraction rules are stale.
package goquery

// CSS selectors for page elements. When the remote UI changes, this file is
// the only place that needs updating.
const (
	// Common chrome.
	NavigationTop      = `div.merNavigationTop`
	NotificationButton = `button[aria-label="お知らせ"]`
	LoadingIcon        = `div[class*="merIconLoading"]`
	AccountButton      = `div[class*="account-button-content"]`

	// Login flow.
	LoginStartButton  = `button`
	LoginEmailInput   = `input[name="emailOrPhone"]`
	LoginPassInput    = `input[name="password"]`
	LoginCodeInput    = `input[name="code"]`
	LoginHeading      = `h1`

	// Empty-state banner shown for missing, deleted, or failed pages.
	emptyStateText = `div[class*="merEmptyState"] p`

	// Sold listing page.
	SoldListContainer = `div[data-testid="listing-container"]`
	soldListRow       = `div[data-testid="listing-container"] table tbody tr`
	soldPagingText    = `div[data-testid="listing-container"] p`
	soldItemLink      = `a[data-testid="sold-item-link"]`

	// Bought listing page.
	BoughtList       = `ul[data-testid="purchase-item-list"]`
	boughtListRow    = `ul[data-testid="purchase-item-list"] > li`
	boughtItemLabel  = `p[data-testid="item-label"]`
	BoughtMoreButton = `button`

	// Item description page.
	descInfoRow      = `div[class*="merDisplayRow"]`
	descRowTitle     = `div[class*="title"]`
	descRowBody      = `div[class*="body"]`
	descCategoryLink = `div[class*="body"] span[class*="merTextLink"] a`

	// Transaction page (normal Mercari).
	TransactionInfo     = `div[data-testid*="transaction:information-for-"]`
	transactionInfoRow  = `div[data-testid*="transaction:information-for-"] div[class*="merDisplayRow"]`
	transactionNumber   = `span[class*="number"]`
	transactionThumb    = `img[alt*="サムネイル"]`

	// Transaction page (Mercari Shops).
	ShopsPhotoName   = `div[data-testid="photo-name"]`
	shopsPaymentCell = `p[data-testid="select-payment-method"]`
	shopsThumb       = `img[alt="shop-image"]`
)

// Text patterns matched against element content where CSS alone cannot
// identify the element.
const (
	TextLoginStart    = "はじめる"
	TextLogin         = "ログイン"
	TextCodeHeading   = "電話番号の確認"
	TextCodeSubmit    = "認証して完了する"
	TextLoadMore      = "もっと見る"
	textNotFound      = "見つかりません"
	textDeleted       = "削除されました"
	textLoadFailed    = "ページの読み込みに失敗"
)
