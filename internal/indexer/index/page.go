package index

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

// Page identifies an indexed document by its canonical locator. Two pages
// are equal iff their canonical strings are equal, so Page is usable as a
// map key directly.
type Page struct {
	url string
}

// NewPage canonicalizes raw (URL parse, fragment dropped) into a Page.
func NewPage(raw string) (Page, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Page{}, fmt.Errorf("empty locator: %w", apperrors.ErrInvalidPage)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Page{}, fmt.Errorf("parsing locator %q: %v: %w", raw, err, apperrors.ErrInvalidPage)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return Page{url: u.String()}, nil
}

// MustPage is NewPage for locators known to be valid; it panics otherwise.
func MustPage(raw string) Page {
	p, err := NewPage(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Page) URL() string    { return p.url }
func (p Page) String() string { return p.url }
func (p Page) IsZero() bool   { return p.url == "" }

func (p Page) MarshalText() ([]byte, error) {
	return []byte(p.url), nil
}

func (p *Page) UnmarshalText(text []byte) error {
	parsed, err := NewPage(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
