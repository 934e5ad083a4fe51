package consent

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/a11y-auditor/internal/repository"
)

// Element is one node of a page snapshot. Ref addresses the live node for Click.
type Element struct {
	Ref    int               `json:"ref"`
	Tag    string            `json:"tag"`
	ID     string            `json:"id,omitempty"`
	Type   string            `json:"type,omitempty"`
	Role   string            `json:"role,omitempty"`
	Text   string            `json:"text,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Shadow *Root             `json:"shadow,omitempty"`
}

// Root is a document or shadow root with its elements in document order.
type Root struct {
	Elements []*Element `json:"elements"`
}

// Clickable reports whether the element is a button, link, submit/button input or role=button.
func (e *Element) Clickable() bool {
	switch e.Tag {
	case "button", "a":
		return true
	case "input":
		return e.Type == "submit" || e.Type == "button"
	}
	return e.Role == "button"
}

// Walk visits elements root by root: every element of a root in document order, then
// the shadow roots it hosts, depth first. It stops when visit returns false.
// Traversal uses an explicit stack so deeply nested component trees cannot exhaust the call stack.
func Walk(root *Root, visit func(*Element) bool) {
	if root == nil {
		return
	}
	stack := []*Root{root}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var hosted []*Root
		for _, el := range r.Elements {
			if !visit(el) {
				return
			}
			if el.Shadow != nil {
				hosted = append(hosted, el.Shadow)
			}
		}
		for i := len(hosted) - 1; i >= 0; i-- {
			stack = append(stack, hosted[i])
		}
	}
}

// Find returns the first element in Walk order satisfying match.
func Find(root *Root, match func(*Element) bool) (*Element, bool) {
	var found *Element
	Walk(root, func(el *Element) bool {
		if match(el) {
			found = el
			return false
		}
		return true
	})
	return found, found != nil
}

// SnapshotOptions controls which elements a snapshot records.
type SnapshotOptions struct {
	// PierceShadow descends into open shadow roots.
	PierceShadow bool `json:"pierce"`
	// Attributes are recorded when present; elements carrying one are included.
	Attributes []string `json:"attributes,omitempty"`
	// Tags, when set, restricts the snapshot to these tag names.
	Tags    []string `json:"tags,omitempty"`
	MaxText int      `json:"maxText"`
}

// DOM reads and clicks elements of a live page.
type DOM interface {
	Snapshot(ctx context.Context, opts SnapshotOptions) (*Root, error)
	Click(ctx context.Context, ref int) error
}

var errStaleRef = errors.New("element no longer attached")

//go:embed snapshot.js
var snapshotScript string

const clickScript = `(function(ref){var el=(window.__a11yAuditRefs||[])[ref];if(!el||!el.isConnected)return false;el.click();return true;})(%d)`

// scriptDOM implements DOM with page script evaluation.
type scriptDOM struct {
	page repository.Page
}

func newScriptDOM(page repository.Page) DOM {
	return &scriptDOM{page: page}
}

func (d *scriptDOM) Snapshot(ctx context.Context, opts SnapshotOptions) (*Root, error) {
	arg, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	var root Root
	if err := d.page.Evaluate(ctx, "("+snapshotScript+")("+string(arg)+")", &root); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &root, nil
}

func (d *scriptDOM) Click(ctx context.Context, ref int) error {
	var clicked bool
	if err := d.page.Evaluate(ctx, fmt.Sprintf(clickScript, ref), &clicked); err != nil {
		return fmt.Errorf("click %d: %w", ref, err)
	}
	if !clicked {
		return fmt.Errorf("click %d: %w", ref, errStaleRef)
	}
	return nil
}
