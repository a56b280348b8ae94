package browser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kstephens0331/carsub/internal/types"
)

// Page wraps a rod page as a types.PageDriver.
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

// Close closes the underlying page.
func (p *Page) Close() error {
	return p.page.Close()
}

// URL returns the page's current location.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Eval runs a JavaScript function in the page and unmarshals the result.
func (p *Page) Eval(js string, out interface{}) error {
	res, err := p.page.Timeout(p.timeout).Eval(js)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	if out == nil {
		return nil
	}
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	return json.Unmarshal(data, out)
}

// element resolves a selector with the page timeout.
func (p *Page) element(selector string) (*rod.Element, error) {
	el, err := p.page.Timeout(p.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", selector, err)
	}
	return el, nil
}

// Exists reports whether the selector matches a visible element.
func (p *Page) Exists(selector string) (bool, error) {
	has, el, err := p.page.Has(selector)
	if err != nil || !has {
		return false, err
	}
	visible, err := el.Visible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}

// Click scrolls the element into view and clicks it.
func (p *Page) Click(selector string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err == nil {
		time.Sleep(100 * time.Millisecond)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// ClickByText scans interactive elements for the best visible-text match
// against the expected caption and clicks it.
func (p *Page) ClickByText(caption string) error {
	res, err := p.page.Timeout(p.timeout).Eval(`(caption) => {
		const want = caption.trim().toLowerCase();
		if (!want) return false;
		const candidates = Array.from(document.querySelectorAll('button, input[type=submit], input[type=button], a'));
		let best = null, bestScore = 0;
		for (const el of candidates) {
			const r = el.getBoundingClientRect();
			if (r.width === 0 || r.height === 0) continue;
			const text = (el.textContent || el.value || '').trim().toLowerCase();
			if (!text) continue;
			let score = 0;
			if (text === want) score = 3;
			else if (text.includes(want) || want.includes(text)) score = 2;
			else if (text.split(/\s+/)[0] === want.split(/\s+/)[0]) score = 1;
			if (score > bestScore) { best = el; bestScore = score; }
		}
		if (!best) return false;
		best.click();
		return true;
	}`, caption)
	if err != nil {
		return fmt.Errorf("click by text %q: %w", caption, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("no interactive element matching %q", caption)
	}
	return nil
}

// Type focuses the field, selects all, types the value, then dispatches the
// notifications pages variously listen to.
func (p *Page) Type(selector, value string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	// Select-all so Input replaces any prefilled value.
	_ = el.SelectAllText()
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input %s: %w", selector, err)
	}
	_, err = el.Eval(`() => {
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		this.blur();
	}`)
	if err != nil {
		return fmt.Errorf("dispatch events %s: %w", selector, err)
	}
	return nil
}

// SetValue assigns the value directly and dispatches input/change. Fallback
// for controls that reject synthetic keystrokes.
func (p *Page) SetValue(selector, value string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`, value)
	if err != nil {
		return fmt.Errorf("set value %s: %w", selector, err)
	}
	return nil
}

// IsChecked reports a checkbox/radio current state.
func (p *Page) IsChecked(selector string) (bool, error) {
	el, err := p.element(selector)
	if err != nil {
		return false, err
	}
	res, err := el.Eval(`() => !!this.checked`)
	if err != nil {
		return false, fmt.Errorf("read checked %s: %w", selector, err)
	}
	return res.Value.Bool(), nil
}

// SelectByValue picks the option with the given value attribute.
func (p *Page) SelectByValue(selector, value string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`, value)
	if err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	return nil
}

// Options lists a select control's options.
func (p *Page) Options(selector string) ([]types.Option, error) {
	el, err := p.element(selector)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(`() => Array.from(this.options || []).map(o => ({value: o.value, text: o.textContent.trim()}))`)
	if err != nil {
		return nil, fmt.Errorf("read options %s: %w", selector, err)
	}
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var opts []types.Option
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("decode options %s: %w", selector, err)
	}
	return opts, nil
}
