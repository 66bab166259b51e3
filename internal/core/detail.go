package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DetailKey addresses one drill-down tree: a DRE class at a period.
type DetailKey struct {
	Class  string
	Period PeriodKey
}

func (k DetailKey) String() string {
	return k.Class + "|" + k.Period.String()
}

func (k DetailKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DetailKey) UnmarshalText(b []byte) error {
	class, period, ok := strings.Cut(string(b), "|")
	if !ok {
		return fmt.Errorf("invalid detail key %q", string(b))
	}
	p, err := ParsePeriodKey(period)
	if err != nil {
		return err
	}
	*k = DetailKey{Class: class, Period: p}
	return nil
}

// DetailNode is one level of the drill-down tree. The root's children are
// departments, theirs are categories, and the categories' children are
// counterparties.
type DetailNode struct {
	Total    decimal.Decimal        `json:"total"`
	Children map[string]*DetailNode `json:"children,omitempty"`
}

// Child returns the named child, creating it when missing.
func (n *DetailNode) Child(name string) *DetailNode {
	if n.Children == nil {
		n.Children = make(map[string]*DetailNode)
	}
	c, ok := n.Children[name]
	if !ok {
		c = &DetailNode{}
		n.Children[name] = c
	}
	return c
}

// Clone returns a deep copy of the subtree.
func (n *DetailNode) Clone() *DetailNode {
	if n == nil {
		return nil
	}
	out := &DetailNode{Total: n.Total}
	if len(n.Children) > 0 {
		out.Children = make(map[string]*DetailNode, len(n.Children))
		for k, c := range n.Children {
			out.Children[k] = c.Clone()
		}
	}
	return out
}

// MergeDetailNodes returns a new tree holding a+b: totals summed at every
// node, child keys unioned. Neither input is modified.
func MergeDetailNodes(a, b *DetailNode) *DetailNode {
	switch {
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}
	out := &DetailNode{Total: a.Total.Add(b.Total)}
	if len(a.Children) == 0 && len(b.Children) == 0 {
		return out
	}
	out.Children = make(map[string]*DetailNode, len(a.Children)+len(b.Children))
	for k, c := range a.Children {
		out.Children[k] = MergeDetailNodes(c, b.Children[k])
	}
	for k, c := range b.Children {
		if _, done := out.Children[k]; !done {
			out.Children[k] = c.Clone()
		}
	}
	return out
}

// LeafSum sums the totals of the deepest nodes of the subtree.
func (n *DetailNode) LeafSum() decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	if len(n.Children) == 0 {
		return n.Total
	}
	sum := decimal.Zero
	for _, c := range n.Children {
		sum = sum.Add(c.LeafSum())
	}
	return sum
}

// DetailMatrix maps "class|period" to its drill-down tree.
type DetailMatrix map[DetailKey]*DetailNode

// MergeDetail returns a new matrix holding a+b.
func MergeDetail(a, b DetailMatrix) DetailMatrix {
	out := make(DetailMatrix, len(a)+len(b))
	for k, n := range a {
		out[k] = MergeDetailNodes(n, b[k])
	}
	for k, n := range b {
		if _, done := out[k]; !done {
			out[k] = n.Clone()
		}
	}
	return out
}
