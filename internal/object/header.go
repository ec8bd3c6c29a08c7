package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/message"
)

var (
	SignatureV2           = []byte{'O', 'H', 'D', 'R'}
	SignatureContinuation = []byte{'O', 'C', 'H', 'K'}
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// maxContinuations bounds how many continuation blocks a header may chain.
const maxContinuations = 1024

// Header is a parsed object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message
}

// Read parses the object header at address, following continuation blocks.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}

	p := &parser{r: r, hdr: &Header{Address: address}, seen: map[uint64]bool{address: true}}
	switch {
	case string(peek) == string(SignatureV2):
		p.hdr.Version = 2
		err = p.readV2(hr)
	case peek[0] == 1:
		p.hdr.Version = 1
		err = p.readV1(hr)
	default:
		return nil, fmt.Errorf("%w: unknown format at %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}
	return p.hdr, nil
}

type parser struct {
	r    *binary.Reader
	hdr  *Header
	seen map[uint64]bool

	// Continuations discovered but not yet read.
	pending []*message.Continuation
}

// add decodes one raw message and records it.
func (p *parser) add(typ message.Type, flags uint8, data []byte) error {
	if typ == message.TypeNIL {
		return nil
	}
	msg, err := message.Parse(typ, data, flags, p.r.Config())
	if err != nil {
		return err
	}
	if cont, ok := msg.(*message.Continuation); ok {
		if p.seen[cont.Offset] {
			return fmt.Errorf("%w: continuation cycle at %d", ErrInvalidHeader, cont.Offset)
		}
		if len(p.seen) > maxContinuations {
			return fmt.Errorf("%w: too many continuation blocks", ErrInvalidHeader)
		}
		p.seen[cont.Offset] = true
		p.pending = append(p.pending, cont)
		return nil
	}
	p.hdr.Messages = append(p.hdr.Messages, msg)
	return nil
}

// next pops the next continuation block to read.
func (p *parser) next() *message.Continuation {
	if len(p.pending) == 0 {
		return nil
	}
	c := p.pending[0]
	p.pending = p.pending[1:]
	return c
}

// Message returns the first message of the given type, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// MessagesOf returns every message of the given type.
func (h *Header) MessagesOf(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

// Dataspace returns the dataspace message, or nil.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

// Datatype returns the datatype message, or nil. A shared datatype is
// reported as nil.
func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

// DataLayout returns the data layout message, or nil.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout).(*message.DataLayout)
	return m
}

// FilterPipeline returns the filter pipeline message, or nil.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// FillValue returns the newest fill value message, or nil.
func (h *Header) FillValue() *message.FillValue {
	if m, ok := h.Message(message.TypeFillValue).(*message.FillValue); ok {
		return m
	}
	m, _ := h.Message(message.TypeFillValueOld).(*message.FillValue)
	return m
}

// SymbolTable returns the symbol table message, or nil.
func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Message(message.TypeSymbolTable).(*message.SymbolTable)
	return m
}

// LinkInfo returns the link info message, or nil.
func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Message(message.TypeLinkInfo).(*message.LinkInfo)
	return m
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, msg := range h.Messages {
		if l, ok := msg.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}
