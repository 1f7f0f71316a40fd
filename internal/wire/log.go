package wire

import "github.com/project-faster/dtp-go/internal/utils"

// LogFragHeader logs a fragment header, either sent or received
func LogFragHeader(logger utils.Logger, h *FragHeader, sent bool) {
	if !logger.Debug() {
		return
	}
	dir := "<-"
	if sent {
		dir = "->"
	}
	switch h.Cmd {
	case FragCommandPush:
		logger.Debugf("\t%s &wire.FragHeader{Cmd: Push, Seq: 0x%x, Len: 0x%x}", dir, h.Seq, h.Len)
	case FragCommandAck:
		logger.Debugf("\t%s &wire.FragHeader{Cmd: Ack, Seq: 0x%x}", dir, h.Seq)
	default:
		logger.Debugf("\t%s %#v", dir, h)
	}
}
