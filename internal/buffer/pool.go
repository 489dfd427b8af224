package buffer

import "github.com/san-kum/dynstream/internal/frame"

// pool is a fixed array of optional buffer slots. Occupied slots carry
// distinct indices.
type pool struct {
	slots []*frame.Buffer
	count int
	free  int // likely empty slot, checked before scanning
}

func newPool(limit int) *pool {
	return &pool{slots: make([]*frame.Buffer, limit)}
}

func (p *pool) limit() int { return len(p.slots) }
func (p *pool) len() int   { return p.count }

func (p *pool) add(b *frame.Buffer) error {
	if _, i := p.find(b.Index); i >= 0 {
		return ErrDuplicateBuffer
	}

	slot := -1
	if p.free < len(p.slots) && p.slots[p.free] == nil {
		slot = p.free
	} else {
		for i, s := range p.slots {
			if s == nil {
				slot = i
				break
			}
		}
	}
	if slot < 0 {
		return ErrCapacityExceeded
	}

	p.slots[slot] = b
	p.count++
	p.free = slot + 1
	return nil
}

func (p *pool) find(index int) (*frame.Buffer, int) {
	for i, s := range p.slots {
		if s != nil && s.Index == index {
			return s, i
		}
	}
	return nil, -1
}

func (p *pool) remove(slot int) {
	if p.slots[slot] == nil {
		return
	}
	p.slots[slot] = nil
	p.count--
	p.free = slot
}

// evictBefore empties every slot holding an index strictly below index and
// returns how many were removed.
func (p *pool) evictBefore(index int) int {
	n := 0
	for i, s := range p.slots {
		if s != nil && s.Index < index {
			p.remove(i)
			n++
		}
	}
	return n
}

// highest returns the newest buffer, or nil when the pool is empty.
func (p *pool) highest() *frame.Buffer {
	var top *frame.Buffer
	for _, s := range p.slots {
		if s != nil && (top == nil || s.Index > top.Index) {
			top = s
		}
	}
	return top
}

func (p *pool) reset(limit int) {
	p.slots = make([]*frame.Buffer, limit)
	p.count = 0
	p.free = 0
}
