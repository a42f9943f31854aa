package browser

import (
	"errors"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// The fakes embed the playwright interfaces and override only what the
// provisioner calls; anything else panics on the nil embedded value.

type fakeBrowserType struct {
	playwright.BrowserType
	browser  *fakeBrowser
	err      error
	launches []playwright.BrowserTypeLaunchOptions
}

func (f *fakeBrowserType) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	f.launches = append(f.launches, options...)
	if f.err != nil {
		return nil, f.err
	}
	return f.browser, nil
}

type fakeBrowser struct {
	playwright.Browser

	mu            sync.Mutex
	contextOpts   []playwright.BrowserNewContextOptions
	contexts      []*fakeContext
	newContextErr error
	newPageErr    error
	closeErr      error
	closed        int
}

func (f *fakeBrowser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.newContextErr != nil {
		return nil, f.newContextErr
	}
	f.contextOpts = append(f.contextOpts, options...)
	c := &fakeContext{newPageErr: f.newPageErr}
	f.contexts = append(f.contexts, c)
	return c, nil
}

func (f *fakeBrowser) Close(options ...playwright.BrowserCloseOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeBrowser) Version() string { return "131.0.0.0" }

type fakeContext struct {
	playwright.BrowserContext
	pages      []*fakePage
	newPageErr error
	closed     int
}

func (f *fakeContext) NewPage() (playwright.Page, error) {
	if f.newPageErr != nil {
		return nil, f.newPageErr
	}
	p := &fakePage{}
	f.pages = append(f.pages, p)
	return p, nil
}

func (f *fakeContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	f.closed++
	return nil
}

type fakePage struct {
	playwright.Page
	timeout float64
	closed  int
}

func (f *fakePage) SetDefaultTimeout(timeout float64) { f.timeout = timeout }

func (f *fakePage) Close(options ...playwright.PageCloseOptions) error {
	f.closed++
	return nil
}

var errBoom = errors.New("boom")

func testDevices() map[string]*playwright.DeviceDescriptor {
	return map[string]*playwright.DeviceDescriptor{
		"iPhone 13 Pro": {
			UserAgent:         "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) Mobile/15E148 Safari/604.1",
			Viewport:          &playwright.Size{Width: 390, Height: 664},
			Screen:            &playwright.Size{Width: 390, Height: 844},
			DeviceScaleFactor: 3,
			IsMobile:          true,
			HasTouch:          true,
		},
		"Pixel 7": {
			UserAgent:         "Mozilla/5.0 (Linux; Android 14; Pixel 7) Mobile Safari/537.36",
			Viewport:          &playwright.Size{Width: 412, Height: 839},
			DeviceScaleFactor: 2.625,
			IsMobile:          true,
			HasTouch:          true,
		},
		"Galaxy S9+": {
			UserAgent:         "Mozilla/5.0 (Linux; Android 8.0.0; SM-G965U) Mobile Safari/537.36",
			Viewport:          &playwright.Size{Width: 320, Height: 658},
			DeviceScaleFactor: 4.5,
			IsMobile:          true,
			HasTouch:          true,
		},
	}
}
