// internal/browser/session/element.go
package session

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

// element is a handle to a node found by Session.FindElements.
type element struct {
	s    *Session
	node *cdp.Node
}

var _ browser.Element = (*element)(nil)

// callResult is the envelope every node-scoped script returns, so a node that has
// left the document is reported instead of read.
type callResult struct {
	Stale bool            `json:"stale"`
	Value json.RawMessage `json:"value"`
}

// wrapNodeFunction guards fn so it only runs on a node still attached to the document.
func wrapNodeFunction(fn string) string {
	return `function() {
	if (!this.isConnected) { return {stale: true}; }
	return {value: (` + fn + `).call(this)};
}`
}

// decodeCallResult unpacks the envelope produced by wrapNodeFunction into out.
func decodeCallResult(raw []byte, out any) error {
	var res callResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	if res.Stale {
		return browser.ErrStaleElement
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return fmt.Errorf("failed to decode script value: %w", err)
	}
	return nil
}

// jsonEncode encodes v as a JavaScript literal for embedding in a script.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// callOn runs fn with this bound to the element's node and decodes its return value.
func (e *element) callOn(ctx context.Context, fn string, out any) error {
	wrapped := wrapNodeFunction(fn)
	return e.s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(c)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(wrapped).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(c)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %w", exc)
		}
		return decodeCallResult([]byte(res.Value), out)
	}))
}

const (
	textJS      = `function() { return (this.innerText !== undefined ? this.innerText : this.textContent) || ""; }`
	displayedJS = `function() {
	const r = this.getBoundingClientRect();
	const st = window.getComputedStyle(this);
	return r.width > 0 && r.height > 0 && st.visibility !== "hidden" && st.display !== "none";
}`
	attributeJS = `function() {
	const name = %s;
	return this.hasAttribute(name) ? {present: true, value: this.getAttribute(name)} : {present: false};
}`
	clearJS = `function() {
	this.value = "";
	this.dispatchEvent(new Event("input", {bubbles: true}));
	return true;
}`
	selectJS = `function() {
	const v = %s;
	const opt = Array.from(this.options || []).find(o => o.value === v);
	if (!opt) { return false; }
	this.value = v;
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
)

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.callOn(ctx, textJS, &text); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var attr struct {
		Present bool   `json:"present"`
		Value   string `json:"value"`
	}
	if err := e.callOn(ctx, fmt.Sprintf(attributeJS, jsonEncode(name)), &attr); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q: %w", name, err)
	}
	return attr.Value, attr.Present, nil
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	var visible bool
	if err := e.callOn(ctx, displayedJS, &visible); err != nil {
		return false, fmt.Errorf("failed to read visibility: %w", err)
	}
	return visible, nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	err := e.s.runActions(ctx,
		dom.Focus().WithNodeID(e.node.NodeID),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("failed to type into element: %w", err)
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := e.callOn(ctx, clearJS, nil); err != nil {
		return fmt.Errorf("failed to clear element: %w", err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.s.runActions(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

// Hover scrolls the node into view and moves the pointer to the center of its content box.
func (e *element) Hover(ctx context.Context) error {
	err := e.s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(c); err != nil {
			return err
		}
		box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(c)
		if err != nil {
			return err
		}
		x, y := quadCenter(box.Content)
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
	}))
	if err != nil {
		return fmt.Errorf("failed to hover element: %w", err)
	}
	return nil
}

// quadCenter returns the centroid of a CDP quad (four x,y pairs).
func quadCenter(q dom.Quad) (float64, float64) {
	if len(q) < 8 {
		return 0, 0
	}
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4
}

func (e *element) SelectByValue(ctx context.Context, value string) error {
	var ok bool
	if err := e.callOn(ctx, fmt.Sprintf(selectJS, jsonEncode(value)), &ok); err != nil {
		return fmt.Errorf("failed to select %q: %w", value, err)
	}
	if !ok {
		return fmt.Errorf("no option with value %q", value)
	}
	return nil
}
