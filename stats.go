package dtp

// TransferStats counts what the receive side has seen so far.
type TransferStats struct {
	// PushesReceived is the number of push fragments admitted into the
	// receiving queue, duplicates included.
	PushesReceived uint64
	// PushesDropped is the number of push fragments dropped because they
	// missed the receive window.
	PushesDropped uint64
	// FragsDelivered is the number of fragments handed out by Recv.
	FragsDelivered uint64
	// AcksReceived is the number of ack fragments seen.
	AcksReceived uint64
}
