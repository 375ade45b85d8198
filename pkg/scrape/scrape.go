// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scrape pulls the few values the platforms expose only through their
// web pages: the embedded Next.js state and a handful of selector lookups.
package scrape

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"

	"github.com/walteh/sb3fetch/pkg/fault"
)

// NextDataID is the id of the script element holding Next.js page state.
const NextDataID = "__NEXT_DATA__"

// 📄 Document is a parsed HTML page
type Document struct {
	root *html.Node
}

// Parse parses an HTML page. The tokenizer is lenient, so only read errors fail.
func Parse(page []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fault.Format("parsing html", err)
	}
	return &Document{root: root}, nil
}

// 🔍 Find returns the first element matching selector, or nil.
//
// Supported selectors are compounds of `tag`, `#id` and `.class`, joined by
// the child (`>`) or descendant (whitespace) combinators.
func (d *Document) Find(selector string) (*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}

	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if sel.match(n) {
			found = n
			return false
		}
		return true
	})
	return found, nil
}

// Attr returns the value of the element's attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text below n, trimmed.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(sb.String())
}

// 🧭 NextData extracts the `__NEXT_DATA__` JSON of a Next.js page
func NextData(page []byte) (gjson.Result, error) {
	doc, err := Parse(page)
	if err != nil {
		return gjson.Result{}, err
	}
	n, err := doc.Find("script#" + NextDataID)
	if err != nil {
		return gjson.Result{}, err
	}
	if n == nil {
		return gjson.Result{}, fault.Formatf("page has no %s script", NextDataID)
	}
	raw := Text(n)
	if !gjson.Valid(raw) {
		return gjson.Result{}, fault.Formatf("%s is not valid json", NextDataID)
	}
	return gjson.Parse(raw), nil
}

// walk visits n and its descendants depth first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

type compound struct {
	tag     string
	id      string
	classes []string
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if v, _ := Attr(n, "id"); v != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		v, _ := Attr(n, "class")
		have := strings.Fields(v)
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// selector is a chain of compounds read right to left.
type selector struct {
	parts []compound
	child []bool // child[i] is true when parts[i] and parts[i+1] are joined by '>'
}

func (s selector) match(n *html.Node) bool {
	return s.matchAt(n, len(s.parts)-1)
}

func (s selector) matchAt(n *html.Node, i int) bool {
	if !s.parts[i].match(n) {
		return false
	}
	if i == 0 {
		return true
	}
	if s.child[i-1] {
		return n.Parent != nil && s.matchAt(n.Parent, i-1)
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if s.matchAt(p, i-1) {
			return true
		}
	}
	return false
}

func compile(raw string) (selector, error) {
	tokens := strings.Fields(strings.ReplaceAll(raw, ">", " > "))
	var sel selector
	pendingChild := false
	for _, tok := range tokens {
		if tok == ">" {
			if len(sel.parts) == 0 || pendingChild {
				return selector{}, errors.Errorf("invalid selector %q", raw)
			}
			pendingChild = true
			continue
		}
		c, err := compileCompound(tok)
		if err != nil {
			return selector{}, errors.Errorf("invalid selector %q: %w", raw, err)
		}
		if len(sel.parts) > 0 {
			sel.child = append(sel.child, pendingChild)
		}
		sel.parts = append(sel.parts, c)
		pendingChild = false
	}
	if len(sel.parts) == 0 || pendingChild {
		return selector{}, errors.Errorf("invalid selector %q", raw)
	}
	return sel, nil
}

func compileCompound(tok string) (compound, error) {
	var c compound
	i := strings.IndexAny(tok, "#.")
	if i < 0 {
		i = len(tok)
	}
	if i > 0 {
		c.tag = strings.ToLower(tok[:i])
	}
	rest := tok[i:]
	for rest != "" {
		marker := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, "#.")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]
		if name == "" {
			return compound{}, errors.Errorf("empty name after %q", marker)
		}
		if marker == '#' {
			c.id = name
		} else {
			c.classes = append(c.classes, name)
		}
	}
	return c, nil
}
