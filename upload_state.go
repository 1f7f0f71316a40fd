package dtp

// An UploadState carries everything the upload half of a connection needs to
// know after a packet was ingested: the peer state piggybacked on the packet
// header, the acknowledgments owed in both directions, and how much room the
// receive window has left. It is assembled fresh on every Input call.
type UploadState struct {
	// RemoteRwnd is the receive window the peer advertised.
	RemoteRwnd uint16
	// RemoteNack is the peer's negative-acknowledgment counter.
	RemoteNack uint32
	// LocalNextSeqToReceive is the sequence number the next in-order fragment
	// must carry.
	LocalNextSeqToReceive SequenceNumber
	// RemoteSeqsToAck lists the push fragments admitted by this packet. Each
	// one must be acknowledged to the peer, duplicates included.
	RemoteSeqsToAck []SequenceNumber
	// AckedLocalSeqs lists fragments of ours the peer acknowledged. The upload
	// half uses them to retire retransmission state.
	AckedLocalSeqs []SequenceNumber
	// LocalReceivingQueueFreeLen is the remaining receive window capacity, the
	// backpressure figure advertised back to the peer.
	LocalReceivingQueueFreeLen int
}
