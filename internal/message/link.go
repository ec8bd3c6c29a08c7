package message

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// LinkType is the kind of a link message.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is one member of a new-style group.
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string

	ObjectAddress uint64 // hard links
	SoftLinkValue string // soft links
	ExternalFile  string // external links
	ExternalPath  string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool { return m.LinkType == LinkTypeSoft }

const (
	linkFlagNameSize      = 0x03
	linkFlagCreationOrder = 0x04
	linkFlagType          = 0x08
	linkFlagCharset       = 0x10
)

func parseLink(r *binary.Reader) (*Link, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 1 {
		return nil, fmt.Errorf("link version %d", hdr[0])
	}
	m := &Link{Version: hdr[0]}
	flags := hdr[1]

	if flags&linkFlagType != 0 {
		t, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		m.LinkType = LinkType(t)
	}
	if flags&linkFlagCreationOrder != 0 {
		if m.CreationOrder, err = r.ReadUint64(); err != nil {
			return nil, err
		}
	}
	if flags&linkFlagCharset != 0 {
		r.Skip(1)
	}
	nameLen, err := r.ReadUintN(1 << (flags & linkFlagNameSize))
	if err != nil {
		return nil, err
	}
	name, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return nil, err
	}
	m.Name = string(name)

	switch m.LinkType {
	case LinkTypeHard:
		m.ObjectAddress, err = r.ReadOffset()
		return m, err
	case LinkTypeSoft, LinkTypeExternal:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		if m.LinkType == LinkTypeSoft {
			m.SoftLinkValue = string(value)
			return m, nil
		}
		// External: one version/flags byte, then two NUL-terminated strings.
		if len(value) > 0 {
			value = value[1:]
		}
		file, path := splitCString(value)
		m.ExternalFile = file
		m.ExternalPath, _ = splitCString(path)
		return m, nil
	}
	// User-defined link types cannot be followed but still name a member.
	return m, nil
}

func splitCString(b []byte) (string, []byte) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:]
		}
	}
	return string(b), nil
}

// NewHardLink returns a link to the object header at address.
func NewHardLink(name string, address uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, ObjectAddress: address}
}

// NewSoftLink returns a link that resolves to target by path.
func NewSoftLink(name, target string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeSoft, Name: name, SoftLinkValue: target}
}

// Serialize implements Serializable for hard and soft links.
func (m *Link) Serialize(w *binary.Writer) error {
	flags := uint8(0)
	if m.LinkType != LinkTypeHard {
		flags |= linkFlagType
	}
	nameSize := 1
	if len(m.Name) > 0xFF {
		flags |= 0x01
		nameSize = 2
	}
	if err := w.WriteBytes([]byte{1, flags}); err != nil {
		return err
	}
	if m.LinkType != LinkTypeHard {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(len(m.Name)), nameSize); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	switch m.LinkType {
	case LinkTypeHard:
		return w.WriteOffset(m.ObjectAddress)
	case LinkTypeSoft:
		if err := w.WriteUint16(uint16(len(m.SoftLinkValue))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftLinkValue))
	}
	return fmt.Errorf("cannot encode link type %d", m.LinkType)
}
