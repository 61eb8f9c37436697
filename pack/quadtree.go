package pack

import (
	"encoding/binary"
	"fmt"
)

// The quad-tree directory of one min-zoom bucket. Nodes are serialized in
// breadth-first quad order; every node carries its own span offset, the
// contiguous range of spans below it and a mask of existing children:
//
//	uvarint selfSpan+1      (0 = node has no own span)
//	uvarint subtreeFirst+1  (0 = empty subtree, never written)
//	uvarint subtreeCount    (number of spans at or below the node)
//	uvarint childMask       (bits 0..3 in quad order)
//
// Spans of a subtree are contiguous because the packer sorts features by
// quad key before writing, so one (first, count) pair covers the subtree.

type quadEntry struct {
	quadKey []uint8
	span    uint32
}

type quadNode struct {
	self         int64
	subtreeFirst int64
	subtreeCount uint64
	children     [4]*quadNode
}

// makeQuadTree serializes the directory for entries sorted by quad key.
func makeQuadTree(entries []quadEntry) []byte {
	if len(entries) == 0 {
		return nil
	}

	root := &quadNode{self: -1, subtreeFirst: -1}
	for _, e := range entries {
		node := root
		for _, q := range e.quadKey {
			if node.children[q] == nil {
				node.children[q] = &quadNode{self: -1, subtreeFirst: -1}
			}
			node = node.children[q]
		}
		node.self = int64(e.span)
	}
	aggregate(root)

	var buf []byte
	queue := []*quadNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		buf = binary.AppendUvarint(buf, uint64(node.self+1))
		buf = binary.AppendUvarint(buf, uint64(node.subtreeFirst+1))
		buf = binary.AppendUvarint(buf, node.subtreeCount)

		mask := uint64(0)
		for q, child := range node.children {
			if child != nil {
				mask |= 1 << q
				queue = append(queue, child)
			}
		}
		buf = binary.AppendUvarint(buf, mask)
	}
	return buf
}

func aggregate(n *quadNode) {
	if n.self >= 0 {
		n.subtreeFirst = n.self
		n.subtreeCount = 1
	}
	for _, child := range n.children {
		if child == nil {
			continue
		}
		aggregate(child)
		if n.subtreeFirst < 0 {
			n.subtreeFirst = child.subtreeFirst
		}
		n.subtreeCount += child.subtreeCount
	}
}

// queryQuadTree walks the directory along path and reports the spans to
// read: the self span of every proper ancestor on the path and the whole
// subtree range of the path's end node.
func queryQuadTree(blob []byte, path []uint8, emitSpan func(offset uint32) error, emitRange func(first uint32, count uint64) error) error {
	type item struct {
		depth  int
		onPath bool
	}

	pos := 0
	queue := []item{{depth: 0, onPath: true}}
	for len(queue) > 0 && pos < len(blob) {
		it := queue[0]
		queue = queue[1:]

		self, n := binary.Uvarint(blob[pos:])
		if n <= 0 {
			return fmt.Errorf("%w: quad tree node", ErrCorrupt)
		}
		pos += n
		first, n := binary.Uvarint(blob[pos:])
		if n <= 0 {
			return fmt.Errorf("%w: quad tree node", ErrCorrupt)
		}
		pos += n
		count, n := binary.Uvarint(blob[pos:])
		if n <= 0 {
			return fmt.Errorf("%w: quad tree node", ErrCorrupt)
		}
		pos += n
		mask, n := binary.Uvarint(blob[pos:])
		if n <= 0 {
			return fmt.Errorf("%w: quad tree node", ErrCorrupt)
		}
		pos += n

		if it.onPath {
			if it.depth == len(path) {
				if first > 0 {
					if err := emitRange(uint32(first-1), count); err != nil {
						return err
					}
				}
			} else if self > 0 {
				if err := emitSpan(uint32(self - 1)); err != nil {
					return err
				}
			}
		}

		for q := 0; q < 4; q++ {
			if mask&(1<<q) == 0 {
				continue
			}
			child := item{depth: it.depth + 1}
			child.onPath = it.onPath && it.depth < len(path) && path[it.depth] == uint8(q)
			queue = append(queue, child)
		}
	}
	return nil
}
