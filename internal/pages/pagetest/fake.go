// Package pagetest provides an in-memory stand-in for a playwright.Page so page
// objects and scenarios can be exercised without a browser.
package pagetest

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Element is the scripted state of every node matching one selector.
type Element struct {
	Count    int
	Hidden   bool
	WaitErr  error
	ClickErr error
	CountErr error
	// OnClick runs after a successful click on the node at index.
	OnClick func(index int)
}

// DOM is the scripted page. Unknown selectors match nothing.
type DOM struct {
	mu sync.Mutex

	url      string
	elements map[string]*Element

	Gotos       []string
	Clicks      []string
	Fills       map[string]string
	Keys        []string
	Scrolls     int
	Screenshots []string
	LoadStates  []string

	// Last timeout in milliseconds passed to WaitFor and Click per selector, and
	// to WaitForLoadState per state. Calls without a timeout are not recorded.
	WaitTimeouts  map[string]float64
	ClickTimeouts map[string]float64
	LoadTimeouts  map[string]float64

	// OnScroll runs after every scroll step; use it to model lazy loading.
	OnScroll func(step int)
	// LoadStateErr is returned by WaitForLoadState for the given state name.
	LoadStateErr map[string]error
	GotoErr      error
	// OnPress runs after a key press; use it to model Enter submitting a form.
	OnPress func(key string)
	// ScreenshotBytes is written to the screenshot path. Nil writes a 1 KiB PNG-ish blob.
	ScreenshotBytes []byte
	ScreenshotErr   error
}

// NewDOM returns an empty page sitting at url.
func NewDOM(url string) *DOM {
	return &DOM{
		url:          url,
		elements:     make(map[string]*Element),
		Fills:        make(map[string]string),
		LoadStateErr: make(map[string]error),

		WaitTimeouts:  make(map[string]float64),
		ClickTimeouts: make(map[string]float64),
		LoadTimeouts:  make(map[string]float64),
	}
}

// Set scripts the nodes for selector.
func (d *DOM) Set(selector string, el Element) *DOM {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := el
	d.elements[selector] = &e
	return d
}

// SetCount changes how many nodes match selector, keeping the rest of its state.
func (d *DOM) SetCount(selector string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elements[selector]; ok {
		e.Count = n
		return
	}
	d.elements[selector] = &Element{Count: n}
}

// SetURL moves the page, as a navigation triggered by a click would.
func (d *DOM) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

// Page returns a playwright.Page backed by d.
func (d *DOM) Page() playwright.Page { return &Page{dom: d} }

// ClickedSelectors returns the distinct selectors clicked, sorted.
func (d *DOM) ClickedSelectors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range d.Clicks {
		sel := c[:strings.LastIndex(c, "#")]
		if !seen[sel] {
			seen[sel] = true
			out = append(out, sel)
		}
	}
	sort.Strings(out)
	return out
}

// Timeout builds an error that satisfies errors.Is(err, playwright.ErrTimeout).
func Timeout(what string) error {
	return fmt.Errorf("%w: Timeout exceeded while waiting for %s", playwright.ErrTimeout, what)
}

func (d *DOM) record(m map[string]float64, key string, ms float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m[key] = ms
}

func (d *DOM) element(selector string) Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elements[selector]; ok {
		return *e
	}
	return Element{}
}

// Page implements the slice of playwright.Page the page objects use.
type Page struct {
	playwright.Page
	dom *DOM
}

func (p *Page) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.dom.mu.Lock()
	defer p.dom.mu.Unlock()
	p.dom.Gotos = append(p.dom.Gotos, url)
	if p.dom.GotoErr != nil {
		return nil, p.dom.GotoErr
	}
	p.dom.url = url
	return nil, nil
}

func (p *Page) URL() string {
	p.dom.mu.Lock()
	defer p.dom.mu.Unlock()
	return p.dom.url
}

func (p *Page) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return &Locator{dom: p.dom, selector: selector, index: -1}
}

func (p *Page) Keyboard() playwright.Keyboard { return &Keyboard{dom: p.dom} }

func (p *Page) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	p.dom.mu.Lock()
	p.dom.Scrolls++
	step := p.dom.Scrolls
	hook := p.dom.OnScroll
	p.dom.mu.Unlock()
	if hook != nil {
		hook(step)
	}
	return nil, nil
}

func (p *Page) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	p.dom.mu.Lock()
	defer p.dom.mu.Unlock()
	if p.dom.ScreenshotErr != nil {
		return nil, p.dom.ScreenshotErr
	}
	data := p.dom.ScreenshotBytes
	if data == nil {
		data = make([]byte, 1024)
	}
	for _, o := range options {
		if o.Path != nil {
			if err := os.WriteFile(*o.Path, data, 0o644); err != nil {
				return nil, err
			}
			p.dom.Screenshots = append(p.dom.Screenshots, *o.Path)
		}
	}
	return data, nil
}

func (p *Page) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	state := "load"
	var timeout *float64
	for _, o := range options {
		if o.State != nil {
			state = string(*o.State)
		}
		if o.Timeout != nil {
			timeout = o.Timeout
		}
	}
	p.dom.mu.Lock()
	defer p.dom.mu.Unlock()
	p.dom.LoadStates = append(p.dom.LoadStates, state)
	if timeout != nil {
		p.dom.LoadTimeouts[state] = *timeout
	}
	return p.dom.LoadStateErr[state]
}

// pwLocator lets Locator embed the interface without its field name hiding
// the interface's own Locator method.
type pwLocator = playwright.Locator

// Locator resolves against the DOM at call time, like the real one.
type Locator struct {
	pwLocator
	dom      *DOM
	selector string
	index    int
}

func (l *Locator) First() playwright.Locator { return l.Nth(0) }

func (l *Locator) Nth(index int) playwright.Locator {
	return &Locator{dom: l.dom, selector: l.selector, index: index}
}

func (l *Locator) Count() (int, error) {
	el := l.dom.element(l.selector)
	if el.CountErr != nil {
		return 0, el.CountErr
	}
	if l.index >= 0 {
		if l.index < el.Count {
			return 1, nil
		}
		return 0, nil
	}
	return el.Count, nil
}

func (l *Locator) All() ([]playwright.Locator, error) {
	el := l.dom.element(l.selector)
	out := make([]playwright.Locator, el.Count)
	for i := range out {
		out[i] = l.Nth(i)
	}
	return out, nil
}

func (l *Locator) target() int {
	if l.index < 0 {
		return 0
	}
	return l.index
}

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	el := l.dom.element(l.selector)
	if el.WaitErr != nil {
		return el.WaitErr
	}
	visible := false
	for _, o := range options {
		if o.State != nil && *o.State == *playwright.WaitForSelectorStateVisible {
			visible = true
		}
		if o.Timeout != nil {
			l.dom.record(l.dom.WaitTimeouts, l.selector, *o.Timeout)
		}
	}
	if el.Count <= l.target() || (visible && el.Hidden) {
		return Timeout(l.selector)
	}
	return nil
}

func (l *Locator) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	el := l.dom.element(l.selector)
	return el.Count > l.target() && !el.Hidden, nil
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	for _, o := range options {
		if o.Timeout != nil {
			l.dom.record(l.dom.ClickTimeouts, l.selector, *o.Timeout)
		}
	}
	el := l.dom.element(l.selector)
	if el.ClickErr != nil {
		return el.ClickErr
	}
	idx := l.target()
	if el.Count <= idx || el.Hidden {
		return Timeout(l.selector)
	}
	l.dom.mu.Lock()
	l.dom.Clicks = append(l.dom.Clicks, fmt.Sprintf("%s#%d", l.selector, idx))
	l.dom.mu.Unlock()
	if el.OnClick != nil {
		el.OnClick(idx)
	}
	return nil
}

func (l *Locator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	if err := l.WaitFor(); err != nil {
		return err
	}
	l.dom.mu.Lock()
	defer l.dom.mu.Unlock()
	l.dom.Fills[l.selector] = value
	return nil
}

// Keyboard records key presses.
type Keyboard struct {
	playwright.Keyboard
	dom *DOM
}

func (k *Keyboard) Press(key string, options ...playwright.KeyboardPressOptions) error {
	k.dom.mu.Lock()
	k.dom.Keys = append(k.dom.Keys, key)
	hook := k.dom.OnPress
	k.dom.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return nil
}
