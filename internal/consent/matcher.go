package consent

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Matcher finds the element a strategy would click.
type Matcher interface {
	Name() string
	TryMatch(root *Root) (*Element, bool)
}

// IDMatcher looks for clickable elements by id. Earlier ids take precedence over later ones
// regardless of where the elements sit in the document.
type IDMatcher struct {
	name string
	ids  []string
}

func NewIDMatcher(name string, ids []string) *IDMatcher {
	return &IDMatcher{name: name, ids: ids}
}

func (m *IDMatcher) Name() string { return m.name }

func (m *IDMatcher) TryMatch(root *Root) (*Element, bool) {
	for _, id := range m.ids {
		if el, ok := Find(root, func(el *Element) bool { return el.ID == id && el.Clickable() }); ok {
			return el, true
		}
	}
	return nil, false
}

// AttributeMatcher looks for elements carrying a provider test marker.
type AttributeMatcher struct {
	name      string
	selectors []AttributeSelector
}

func NewAttributeMatcher(name string, selectors []AttributeSelector) *AttributeMatcher {
	return &AttributeMatcher{name: name, selectors: selectors}
}

func (m *AttributeMatcher) Name() string { return m.name }

func (m *AttributeMatcher) TryMatch(root *Root) (*Element, bool) {
	for _, sel := range m.selectors {
		el, ok := Find(root, func(el *Element) bool {
			v, has := el.Attrs[sel.Name]
			return has && (sel.Value == "" || v == sel.Value)
		})
		if ok {
			return el, true
		}
	}
	return nil, false
}

type keyword struct {
	text      string
	wholeWord bool
}

// TextMatcher matches the visible text of clickable elements against keywords.
// Keywords of at most wholeWordMaxLen runes must match a whole word; longer ones
// match anywhere in the text. The first matching element in document order wins.
type TextMatcher struct {
	name     string
	keywords []keyword
	tags     map[string]bool
	topLevel bool
}

func NewTextMatcher(name string, keywords []string, wholeWordMaxLen int) *TextMatcher {
	m := &TextMatcher{name: name}
	for _, k := range keywords {
		t := normalizeText(k)
		if t == "" {
			continue
		}
		m.keywords = append(m.keywords, keyword{text: t, wholeWord: utf8.RuneCountInString(t) <= wholeWordMaxLen})
	}
	return m
}

// OnlyTags restricts candidates to the given tag names.
func (m *TextMatcher) OnlyTags(tags ...string) *TextMatcher {
	if len(tags) == 0 {
		return m
	}
	m.tags = make(map[string]bool, len(tags))
	for _, t := range tags {
		m.tags[strings.ToLower(t)] = true
	}
	return m
}

// TopLevel ignores elements inside shadow roots.
func (m *TextMatcher) TopLevel() *TextMatcher {
	m.topLevel = true
	return m
}

func (m *TextMatcher) Name() string { return m.name }

func (m *TextMatcher) TryMatch(root *Root) (*Element, bool) {
	if !m.topLevel {
		return Find(root, m.matches)
	}
	if root == nil {
		return nil, false
	}
	for _, el := range root.Elements {
		if m.matches(el) {
			return el, true
		}
	}
	return nil, false
}

func (m *TextMatcher) matches(el *Element) bool {
	if m.tags != nil {
		if !m.tags[el.Tag] {
			return false
		}
	} else if !el.Clickable() {
		return false
	}
	text := normalizeText(el.Text)
	if text == "" {
		return false
	}
	for _, k := range m.keywords {
		if k.wholeWord {
			if containsWord(text, k.text) {
				return true
			}
		} else if strings.Contains(text, k.text) {
			return true
		}
	}
	return false
}

// normalizeText composes, lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

// containsWord reports whether word occurs in text bounded by non-alphanumeric runes.
func containsWord(text, word string) bool {
	for start := 0; start <= len(text)-len(word); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if !isWordRuneBefore(text, i) && !isWordRuneAt(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func isWordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// BuildChain turns the catalog strategies into matchers, keeping their order.
func BuildChain(cat *Catalog) ([]Matcher, error) {
	chain := make([]Matcher, 0, len(cat.Strategies))
	for _, s := range cat.Strategies {
		name := s.Name
		if name == "" {
			name = string(s.Kind)
		}
		switch s.Kind {
		case KindID:
			chain = append(chain, NewIDMatcher(name, s.IDs))
		case KindAttribute:
			chain = append(chain, NewAttributeMatcher(name, s.Attributes))
		case KindText:
			chain = append(chain, NewTextMatcher(name, s.Keywords, cat.WholeWordMaxLen))
		default:
			return nil, fmt.Errorf("unknown strategy kind %q", s.Kind)
		}
	}
	return chain, nil
}
