package protocol

// MaxPacketSize is the maximum size of a DTP datagram payload in bytes. It is
// chosen small enough to avoid IP fragmentation on Ethernet-sized paths.
const MaxPacketSize = 1452

// MaxReceivingQueueLen is the largest receive window a Download may be
// configured with. The free capacity reported to the peer travels in a 16 bit
// wire field, so the window may never exceed it.
const MaxReceivingQueueLen = 1<<16 - 1

// DefaultReceivingQueueLen is the receive window used by the examples and
// tools when the caller doesn't specify one.
const DefaultReceivingQueueLen = 512
