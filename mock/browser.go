package mock

import (
	"context"
	"time"

	"github.com/kimata/merhist"
)

var _ merhist.Browser = (*Browser)(nil)

// Browser is a mock implementation of merhist.Browser.
type Browser struct {
	NavigateFn      func(ctx context.Context, url string) error
	HTMLFn          func(ctx context.Context) (string, error)
	ClickFn         func(ctx context.Context, selector string) error
	ClickMatchingFn func(ctx context.Context, selector, pattern string) error
	InputFn         func(ctx context.Context, selector, text string) error
	WaitVisibleFn   func(ctx context.Context, selector string, timeout time.Duration) error
	WaitHiddenFn    func(ctx context.Context, selector string, timeout time.Duration) error
	DumpStateFn     func(ctx context.Context) (string, error)
	SessionValidFn  func(ctx context.Context) bool
	ResetFn         func(ctx context.Context) error
	CloseFn         func() error
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.NavigateFn(ctx, url)
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	return b.HTMLFn(ctx)
}

func (b *Browser) Click(ctx context.Context, selector string) error {
	return b.ClickFn(ctx, selector)
}

func (b *Browser) ClickMatching(ctx context.Context, selector, pattern string) error {
	return b.ClickMatchingFn(ctx, selector, pattern)
}

func (b *Browser) Input(ctx context.Context, selector, text string) error {
	return b.InputFn(ctx, selector, text)
}

func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return b.WaitVisibleFn(ctx, selector, timeout)
}

func (b *Browser) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return b.WaitHiddenFn(ctx, selector, timeout)
}

func (b *Browser) DumpState(ctx context.Context) (string, error) {
	return b.DumpStateFn(ctx)
}

func (b *Browser) SessionValid(ctx context.Context) bool {
	return b.SessionValidFn(ctx)
}

func (b *Browser) Reset(ctx context.Context) error {
	return b.ResetFn(ctx)
}

func (b *Browser) Close() error {
	return b.CloseFn()
}
