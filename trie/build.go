package trie

import (
	"fmt"
	"sort"
)

// stagingNode is the pointer trie keys are inserted into before layout.
type stagingNode struct {
	children map[int]*stagingNode
	key      []string // set when a key ends here
}

func (s *stagingNode) codes() []int {
	codes := make([]int, 0, len(s.children))
	for c := range s.children {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// builder lays staging nodes out into the base/check arrays.
type builder struct {
	base      []int
	check     []int
	terminals map[int][]string
	firstFree int // lowest slot that may still be free
}

// Build constructs an Index from keys. Empty keys are skipped and the first
// insertion of a repeated key wins. The build is all-or-nothing: on error no
// index is returned.
func Build(keys [][]string) (*Index, error) {
	symbols := NewAlphabet()
	symbols.Add("") // reserve id 0

	root := &stagingNode{}
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		n := root
		for _, sym := range key {
			c := symbols.Add(sym)
			if n.children == nil {
				n.children = make(map[int]*stagingNode)
			}
			next, ok := n.children[c]
			if !ok {
				next = &stagingNode{}
				n.children[c] = next
			}
			n = next
		}
		if n.key == nil {
			n.key = append([]string(nil), key...)
		}
	}

	b := &builder{
		base:      []int{0},
		check:     []int{notFound},
		terminals: make(map[int][]string),
		firstFree: 1,
	}
	if err := b.layout(root); err != nil {
		return nil, err
	}

	return &Index{
		Base:      b.base,
		Check:     b.check,
		Symbols:   symbols,
		Terminals: b.terminals,
	}, nil
}

// layout places the staging trie depth first with an explicit stack. All
// children of a parent are placed together at an offset where every slot is
// free, so already placed subtrees never move.
func (b *builder) layout(root *stagingNode) error {
	type pending struct {
		node *stagingNode
		slot int
	}
	stack := []pending{{node: root, slot: 0}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.node.key != nil {
			b.terminals[p.slot] = p.node.key
		}
		if len(p.node.children) == 0 {
			continue
		}

		codes := p.node.codes()
		offset := b.findBase(codes)
		if err := b.claim(p.slot, offset, codes); err != nil {
			return err
		}

		// Push in reverse so the smallest symbol is laid out first.
		for i := len(codes) - 1; i >= 0; i-- {
			c := codes[i]
			stack = append(stack, pending{node: p.node.children[c], slot: offset + c})
		}
	}
	return nil
}

// claim sets the base of parent to offset and marks every child slot as
// owned by parent. Nothing is written when a slot belongs to another node.
func (b *builder) claim(parent, offset int, codes []int) error {
	b.grow(offset + codes[len(codes)-1] + 1)
	for _, c := range codes {
		slot := offset + c
		if owner := b.check[slot]; owner != notFound && owner != parent {
			return fmt.Errorf("%w: slot %d owned by node %d, wanted by node %d", ErrBuildConflict, slot, owner, parent)
		}
	}
	b.base[parent] = offset
	for _, c := range codes {
		b.check[offset+c] = parent
	}
	b.advance()
	return nil
}

// findBase returns the smallest offset at which every code lands on a free slot.
func (b *builder) findBase(codes []int) int {
	offset := b.firstFree - codes[0]
	if offset < 0 {
		offset = 0
	}
	for !b.fits(offset, codes) {
		offset++
	}
	return offset
}

func (b *builder) fits(offset int, codes []int) bool {
	for _, c := range codes {
		slot := offset + c
		if slot < len(b.check) && b.check[slot] != notFound {
			return false
		}
	}
	return true
}

func (b *builder) grow(n int) {
	for len(b.check) < n {
		b.base = append(b.base, notFound)
		b.check = append(b.check, notFound)
	}
}

func (b *builder) advance() {
	for b.firstFree < len(b.check) && b.check[b.firstFree] != notFound {
		b.firstFree++
	}
}
