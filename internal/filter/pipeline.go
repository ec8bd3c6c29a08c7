package filter

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/message"
)

// Pipeline is an ordered list of filters. The zero value passes data
// through unchanged.
type Pipeline struct {
	filters []Filter
	// slots maps each filter to its position in the message, which is the
	// bit it owns in a chunk's filter mask.
	slots []int
}

// NewPipeline builds a pipeline from a filter pipeline message, which may
// be nil.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for i, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		if f != nil {
			p.filters = append(p.filters, f)
			p.slots = append(p.slots, i)
		}
	}
	return p, nil
}

// Decode reverses the pipeline. Filters whose mask bit is set were not
// applied when the chunk was written and are skipped.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(p.slots[i])) != 0 {
			continue
		}
		out, err := p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Name(p.filters[i].ID()), err)
		}
		data = out
	}
	return data, nil
}

// limiter is implemented by filters whose output can grow without bound.
type limiter interface {
	setLimit(n uint64)
}

// SetLimit caps the decoded size of each expanding filter at n bytes,
// the size of one chunk. Output past the cap fails with ErrOversize.
func (p *Pipeline) SetLimit(n uint64) {
	for _, f := range p.filters {
		if l, ok := f.(limiter); ok {
			l.setLimit(n)
		}
	}
}

// Encode applies the pipeline in write order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		out, err := f.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Name(f.ID()), err)
		}
		data = out
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool { return len(p.filters) == 0 }

// Len returns the number of active filters.
func (p *Pipeline) Len() int { return len(p.filters) }
