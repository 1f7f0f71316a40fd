package wire

import (
	"bytes"

	"github.com/project-faster/dtp-go/internal/utils"
)

// A PacketHeader leads every DTP packet. It carries the state the peer
// piggybacks on each datagram: its advertised receive window and its
// negative-acknowledgment counter.
type PacketHeader struct {
	Rwnd uint16
	Nack uint32
}

// ParsePacketHeader reads a packet header.
func ParsePacketHeader(r *bytes.Reader) (*PacketHeader, error) {
	hdr := &PacketHeader{}

	rwnd, err := utils.BigEndian.ReadUint16(r)
	if err != nil {
		return nil, err
	}
	hdr.Rwnd = rwnd

	nack, err := utils.BigEndian.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	hdr.Nack = nack

	return hdr, nil
}

// Write writes a packet header.
func (h *PacketHeader) Write(b *bytes.Buffer) error {
	utils.BigEndian.WriteUint16(b, h.Rwnd)
	utils.BigEndian.WriteUint32(b, h.Nack)
	return nil
}

// MinLength of a written packet header
func (h *PacketHeader) MinLength() int {
	return 6
}
