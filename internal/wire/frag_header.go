package wire

import (
	"bytes"
	"errors"

	"github.com/project-faster/dtp-go/internal/protocol"
	"github.com/project-faster/dtp-go/internal/utils"
)

// A FragCommand says what a fragment record announces: application payload or
// an acknowledgment.
type FragCommand uint8

const (
	// FragCommandPush announces a payload-carrying fragment
	FragCommandPush FragCommand = 0x01
	// FragCommandAck acknowledges a fragment previously sent by us
	FragCommandAck FragCommand = 0x02
)

// A FragHeader introduces one fragment record inside a DTP packet
type FragHeader struct {
	Cmd FragCommand
	Seq protocol.SequenceNumber
	// Len is the length of the payload following the header.
	// Only set for push fragments.
	Len uint32
}

var (
	errUnknownFragCommand = errors.New("FragHeader: unknown fragment command")
	errEmptyPush          = errors.New("FragHeader: attempting to write a push fragment without payload")
)

// ParseFragHeader reads a fragment header. The command byte must not have been
// read yet. The payload of a push fragment is left in the reader.
func ParseFragHeader(r *bytes.Reader) (*FragHeader, error) {
	cmdByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	hdr := &FragHeader{Cmd: FragCommand(cmdByte)}
	if hdr.Cmd != FragCommandPush && hdr.Cmd != FragCommandAck {
		return nil, errUnknownFragCommand
	}

	seq, err := utils.BigEndian.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	hdr.Seq = protocol.SequenceNumber(seq)

	if hdr.Cmd == FragCommandPush {
		hdr.Len, err = utils.BigEndian.ReadUint32(r)
		if err != nil {
			return nil, err
		}
	}

	return hdr, nil
}

// Write writes a fragment header. The payload of a push fragment is not
// written, the caller appends it.
func (h *FragHeader) Write(b *bytes.Buffer) error {
	switch h.Cmd {
	case FragCommandPush:
		if h.Len == 0 {
			return errEmptyPush
		}
	case FragCommandAck:
	default:
		return errUnknownFragCommand
	}

	b.WriteByte(uint8(h.Cmd))
	utils.BigEndian.WriteUint32(b, uint32(h.Seq))
	if h.Cmd == FragCommandPush {
		utils.BigEndian.WriteUint32(b, h.Len)
	}
	return nil
}

// MinLength of a written fragment header, not counting the payload
func (h *FragHeader) MinLength() int {
	if h.Cmd == FragCommandPush {
		return 9
	}
	return 5
}
