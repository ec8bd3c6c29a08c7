package object

import (
	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/message"
)

func messageFlags(msg message.Message) uint8 {
	if msg.Type() == message.TypeDatatype {
		return message.FlagConstant
	}
	return 0
}

// EncodeV1 builds a version 1 object header. The message area is padded
// with a NIL message up to minSize bytes, which is how the library leaves
// room for later messages.
func EncodeV1(msgs []message.Serializable, cfg binary.Config, minSize int) ([]byte, error) {
	body, err := EncodeV1Block(msgs, cfg)
	if err != nil {
		return nil, err
	}
	if pad := minSize - len(body); pad >= 8 {
		nilMsg := make([]byte, pad)
		// NIL message: type 0, data size pad-8.
		binary.EncodeUint(nilMsg[2:], uint64(pad-8), 2, cfg.ByteOrder)
		body = append(body, nilMsg...)
	}

	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteBytes([]byte{1, 0}); err != nil {
		return nil, err
	}
	if err := w.WriteUint16(uint16(len(msgs))); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(1); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(body))); err != nil {
		return nil, err
	}
	if err := w.WriteZeros(4); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeV1Block encodes messages in the version 1 format without a prefix.
// It is used directly for continuation blocks.
func EncodeV1Block(msgs []message.Serializable, cfg binary.Config) ([]byte, error) {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	for _, msg := range msgs {
		data, err := message.Encode(msg, cfg)
		if err != nil {
			return nil, err
		}
		for len(data)%8 != 0 {
			data = append(data, 0)
		}
		if err := w.WriteUint16(uint16(msg.Type())); err != nil {
			return nil, err
		}
		if err := w.WriteUint16(uint16(len(data))); err != nil {
			return nil, err
		}
		if err := w.WriteBytes([]byte{messageFlags(msg), 0, 0, 0}); err != nil {
			return nil, err
		}
		if err := w.WriteBytes(data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// EncodeV2 builds a version 2 object header with a 4-byte chunk size field
// and no optional fields.
func EncodeV2(msgs []message.Serializable, cfg binary.Config) ([]byte, error) {
	body, err := encodeV2Messages(msgs, cfg)
	if err != nil {
		return nil, err
	}
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteBytes(SignatureV2); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{2, 0x02}); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(body))); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(body); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeV2Block builds a version 2 continuation block.
func EncodeV2Block(msgs []message.Serializable, cfg binary.Config) ([]byte, error) {
	body, err := encodeV2Messages(msgs, cfg)
	if err != nil {
		return nil, err
	}
	out := append(append([]byte{}, SignatureContinuation...), body...)
	sum := make([]byte, 4)
	binary.EncodeUint(sum, uint64(binary.Lookup3Checksum(out)), 4, cfg.ByteOrder)
	return append(out, sum...), nil
}

func encodeV2Messages(msgs []message.Serializable, cfg binary.Config) ([]byte, error) {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	for _, msg := range msgs {
		data, err := message.Encode(msg, cfg)
		if err != nil {
			return nil, err
		}
		if err := w.WriteUint8(uint8(msg.Type())); err != nil {
			return nil, err
		}
		if err := w.WriteUint16(uint16(len(data))); err != nil {
			return nil, err
		}
		if err := w.WriteUint8(messageFlags(msg)); err != nil {
			return nil, err
		}
		if err := w.WriteBytes(data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
