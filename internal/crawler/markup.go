package crawler

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/tokenizer"
)

// Document is the indexable content of one HTML page.
type Document struct {
	Title string
	Words []string
	Links []string
}

// skipped elements contribute neither words nor links.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Extract parses an HTML page fetched from base. Words are the terms of all
// text nodes in document order outside script and style; Links are the
// absolute, fragment-free targets of <a href> that point at .html or .htm
// pages, deduplicated in order of first appearance.
func Extract(r io.Reader, base *url.URL) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html from %s: %w", base, err)
	}

	out := &Document{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	var stream tokenizer.Stream
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
		case html.TextNode:
			for _, tok := range stream.Feed(n.Data) {
				out.Words = append(out.Words, tok.Term)
			}
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("script, style, noscript, template").Length() > 0 {
			return
		}
		href, _ := s.Attr("href")
		link, ok := resolveLink(base, href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out.Links = append(out.Links, link)
	})
	return out, nil
}

// resolveLink resolves href against base and keeps it only if it names an
// HTML page on a crawlable scheme.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""
	switch abs.Scheme {
	case "file", "http", "https":
	default:
		return "", false
	}
	switch strings.ToLower(path.Ext(abs.Path)) {
	case ".html", ".htm":
		return abs.String(), true
	}
	return "", false
}
