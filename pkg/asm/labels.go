package asm

import "fmt"

// LabelContext hands out labellers. Every labeller takes a fresh counter
// value, so labels stay unique across unrelated constructs that share a
// prefix.
type LabelContext struct {
	count int
}

func NewLabelContext() *LabelContext { return &LabelContext{} }

func (c *LabelContext) NewLabeller(prefix string) *Labeller {
	c.count++
	return &Labeller{prefix: prefix, n: c.count}
}

// Labeller renders labels for a single construct: "-prefix-N-suffix".
type Labeller struct {
	prefix string
	n      int
}

func (l *Labeller) New(suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("-%s-%d", l.prefix, l.n)
	}
	return fmt.Sprintf("-%s-%d-%s", l.prefix, l.n, suffix)
}
