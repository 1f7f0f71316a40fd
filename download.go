// Package dtp implements the receive side of the Datagram Transmission
// Protocol, a reliable, ordered transport built on top of unreliable,
// unordered datagrams.
package dtp

import (
	"bytes"
	"io"

	"github.com/project-faster/dtp-go/dtperr"
	"github.com/project-faster/dtp-go/internal/protocol"
	"github.com/project-faster/dtp-go/internal/utils"
	"github.com/project-faster/dtp-go/internal/wire"
)

// A SequenceNumber identifies a fragment's position in one connection's
// delivery order.
type SequenceNumber = protocol.SequenceNumber

// A Download reassembles the fragment stream of one DTP connection. It accepts
// raw packets in any order, delivers their payload fragments in sequence
// order, and reports to the upload half what must be acknowledged.
//
// A Download is not safe for concurrent use. Drive it from the goroutine that
// owns the connection.
type Download struct {
	// fragments in delivery order, waiting for the application
	receivedQueue [][]byte
	// fragments that arrived ahead of their turn, keyed by sequence number
	receivingQueue map[protocol.SequenceNumber][]byte

	nextSeqToReceive     protocol.SequenceNumber
	maxReceivingQueueLen int

	stats  TransferStats
	logger utils.Logger
}

// NewDownload creates a Download with the given receive window, counted in
// fragments. It panics if the window is not positive or doesn't fit the 16 bit
// window field of the packet header.
func NewDownload(maxReceivingQueueLen int) *Download {
	if maxReceivingQueueLen <= 0 {
		panic("dtp: receiving queue length must be positive")
	}
	if maxReceivingQueueLen > protocol.MaxReceivingQueueLen {
		panic("dtp: receiving queue length overflows the window field")
	}
	d := &Download{
		receivingQueue:       make(map[protocol.SequenceNumber][]byte),
		maxReceivingQueueLen: maxReceivingQueueLen,
		logger:               utils.DefaultLogger.WithPrefix("download"),
	}
	d.checkRep()
	return d
}

// Recv returns the next in-order fragment, if one is ready.
func (d *Download) Recv() ([]byte, bool) {
	var frag []byte
	var ok bool
	if len(d.receivedQueue) > 0 {
		frag = d.receivedQueue[0]
		d.receivedQueue[0] = nil
		d.receivedQueue = d.receivedQueue[1:]
		d.stats.FragsDelivered++
		ok = true
	}
	d.checkRep()
	return frag, ok
}

// Input ingests one raw packet. Only an unparseable packet header fails the
// call, and it fails before any state changed. Everything else a broken or
// malicious peer may send merely cuts fragment processing short: fragments
// applied up to that point stay applied.
func (d *Download) Input(data []byte) (UploadState, error) {
	r := bytes.NewReader(data)

	hdr, err := wire.ParsePacketHeader(r)
	if err != nil {
		return UploadState{}, dtperr.Error(dtperr.DecodingError, err.Error())
	}

	remoteSeqsToAck, ackedLocalSeqs := d.handleFrags(r)

	d.checkRep()
	return UploadState{
		RemoteRwnd:                 hdr.Rwnd,
		RemoteNack:                 hdr.Nack,
		LocalNextSeqToReceive:      d.nextSeqToReceive,
		RemoteSeqsToAck:            remoteSeqsToAck,
		AckedLocalSeqs:             ackedLocalSeqs,
		LocalReceivingQueueFreeLen: d.maxReceivingQueueLen - len(d.receivingQueue),
	}, nil
}

// handleFrags reads fragment records until the packet is exhausted or the
// remainder is unusable.
func (d *Download) handleFrags(r *bytes.Reader) (remoteSeqsToAck, ackedLocalSeqs []protocol.SequenceNumber) {
	for r.Len() > 0 {
		hdr, err := wire.ParseFragHeader(r)
		if err != nil {
			d.logger.Debugf("Stopping fragment processing: %s", err)
			return
		}
		wire.LogFragHeader(d.logger, hdr, false)

		switch hdr.Cmd {
		case wire.FragCommandAck:
			d.stats.AcksReceived++
			ackedLocalSeqs = append(ackedLocalSeqs, hdr.Seq)
		case wire.FragCommandPush:
			if hdr.Len == 0 {
				d.logger.Debugf("Stopping fragment processing: zero length push fragment %d", hdr.Seq)
				return
			}
			if uint64(hdr.Len) > uint64(r.Len()) {
				d.logger.Debugf("Stopping fragment processing: push fragment %d is truncated", hdr.Seq)
				return
			}
			frag := make([]byte, hdr.Len)
			if _, err := io.ReadFull(r, frag); err != nil {
				return
			}
			if d.handlePushFrag(hdr.Seq, frag) {
				remoteSeqsToAck = append(remoteSeqsToAck, hdr.Seq)
			}
		}
	}
	return
}

// handlePushFrag applies admission control and reports whether the fragment
// must be acknowledged. Duplicates inside the window are admitted again, the
// peer may need the repeated ack.
func (d *Download) handlePushFrag(seq protocol.SequenceNumber, frag []byte) bool {
	if seq.Sub(d.nextSeqToReceive) >= uint32(d.maxReceivingQueueLen) {
		// a stale duplicate or too far ahead
		d.logger.Debugf("Dropping push fragment %d outside the receive window [%d, %d)", seq, d.nextSeqToReceive, d.nextSeqToReceive.Add(uint32(d.maxReceivingQueueLen)))
		d.stats.PushesDropped++
		return false
	}
	d.stats.PushesReceived++

	if seq == d.nextSeqToReceive {
		// in-order arrival, don't touch the receiving queue
		d.receivedQueue = append(d.receivedQueue, frag)
		d.nextSeqToReceive = d.nextSeqToReceive.Add(1)
	} else {
		d.receivingQueue[seq] = frag
	}

	// move fragments that became contiguous over to the received queue
	for {
		frag, ok := d.receivingQueue[d.nextSeqToReceive]
		if !ok {
			break
		}
		delete(d.receivingQueue, d.nextSeqToReceive)
		d.receivedQueue = append(d.receivedQueue, frag)
		d.nextSeqToReceive = d.nextSeqToReceive.Add(1)
	}
	return true
}

// Stats returns a snapshot of the transfer statistics.
func (d *Download) Stats() TransferStats {
	return d.stats
}

func (d *Download) checkRep() {
	if d.maxReceivingQueueLen <= 0 {
		panic("dtp: receiving queue length must be positive")
	}
	if len(d.receivingQueue) > d.maxReceivingQueueLen {
		panic("dtp: receiving queue overflowed its window")
	}
	for seq := range d.receivingQueue {
		if !d.nextSeqToReceive.Less(seq) {
			panic("dtp: buffered fragment not ahead of the next expected sequence number")
		}
	}
}
