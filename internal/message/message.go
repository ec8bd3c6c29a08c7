package message

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// ErrMalformed is returned when a message body cannot be decoded.
var ErrMalformed = errors.New("malformed header message")

// Type is an HDF5 header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
)

// Flag bits carried by each message in an object header.
const (
	FlagConstant = 0x01
	FlagShared   = 0x02
)

// Message is implemented by all decoded header messages.
type Message interface {
	Type() Type
}

// Serializable messages can be encoded back into an object header.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
}

// Encode serializes msg into a fresh byte slice.
func Encode(msg Serializable, cfg binary.Config) ([]byte, error) {
	buf := &binary.Buffer{}
	if err := msg.Serialize(binary.NewWriter(buf, cfg)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes a message body. Messages the reader has no use for are
// returned as *Unknown.
func Parse(typ Type, data []byte, flags uint8, cfg binary.Config) (Message, error) {
	if flags&FlagShared != 0 {
		return &Unknown{typ: typ, data: data, Shared: true}, nil
	}
	r := binary.NewReader(bytes.NewReader(data), cfg)

	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(r)
	case TypeDatatype:
		msg, err = parseDatatype(r)
	case TypeDataLayout:
		msg, err = parseDataLayout(r)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(r)
	case TypeFillValue:
		msg, err = parseFillValue(r)
	case TypeFillValueOld:
		msg, err = parseFillValueOld(r)
	case TypeLink:
		msg, err = parseLink(r)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(r)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(r)
	case TypeObjectHeaderContinuation:
		msg, err = parseContinuation(r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: type 0x%04x: %v", ErrMalformed, uint16(typ), err)
	}
	return msg, nil
}

// Unknown is a message the reader does not interpret.
type Unknown struct {
	typ  Type
	data []byte

	// Shared is set when the message body lives in another object header
	// or the shared message heap.
	Shared bool
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func parseContinuation(r *binary.Reader) (*Continuation, error) {
	offset, err := r.ReadOffset()
	if err != nil {
		return nil, err
	}
	length, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	return &Continuation{Offset: offset, Length: length}, nil
}

// Serialize implements Serializable.
func (m *Continuation) Serialize(w *binary.Writer) error {
	if err := w.WriteOffset(m.Offset); err != nil {
		return err
	}
	return w.WriteLength(m.Length)
}
