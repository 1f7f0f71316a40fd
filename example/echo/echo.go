package main

import (
	"bytes"
	"fmt"
	"log"
	"net"

	dtp "github.com/project-faster/dtp-go"
	"github.com/project-faster/dtp-go/internal/protocol"
	"github.com/project-faster/dtp-go/internal/wire"
)

const addr = "localhost:4242"

const message = "foobar decafbad"

// We start a receiver draining datagrams into a Download, then push the
// message as deliberately reordered fragments and wait until every fragment
// has been acknowledged.
func main() {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		panic(err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		panic(err)
	}
	go func() { log.Fatal(receiver(conn)) }()

	if err := senderMain(); err != nil {
		panic(err)
	}
}

// receiver feeds every datagram into a Download, prints the reassembled
// fragments and echoes an ack packet back to the sender.
func receiver(conn *net.UDPConn) error {
	download := dtp.NewDownload(protocol.DefaultReceivingQueueLen)
	for {
		buf := make([]byte, protocol.MaxPacketSize)
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		state, err := download.Input(buf[:n])
		if err != nil {
			return err
		}
		for {
			frag, ok := download.Recv()
			if !ok {
				break
			}
			fmt.Printf("Receiver: Got '%s'\n", frag)
		}
		if len(state.RemoteSeqsToAck) == 0 {
			continue
		}
		ack, err := buildAckPacket(state)
		if err != nil {
			return err
		}
		if _, err := conn.WriteToUDP(ack, raddr); err != nil {
			return err
		}
	}
}

func senderMain() error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	frags := fragment(message, 4)
	// send the fragments in reverse, so the receiver has to buffer them
	for i := len(frags) - 1; i >= 0; i-- {
		packet, err := buildPushPacket(dtp.SequenceNumber(i), frags[i])
		if err != nil {
			return err
		}
		fmt.Printf("Sender: Pushing fragment %d '%s'\n", i, frags[i])
		if _, err := conn.Write(packet); err != nil {
			return err
		}
	}

	acked := make(map[dtp.SequenceNumber]bool)
	for len(acked) < len(frags) {
		buf := make([]byte, protocol.MaxPacketSize)
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		r := bytes.NewReader(buf[:n])
		if _, err := wire.ParsePacketHeader(r); err != nil {
			return err
		}
		for r.Len() > 0 {
			frag, err := wire.ParseFragHeader(r)
			if err != nil {
				return err
			}
			fmt.Printf("Sender: Fragment %d acked\n", frag.Seq)
			acked[frag.Seq] = true
		}
	}
	return nil
}

func fragment(s string, size int) []string {
	var frags []string
	for len(s) > size {
		frags = append(frags, s[:size])
		s = s[size:]
	}
	return append(frags, s)
}

func buildPushPacket(seq dtp.SequenceNumber, payload string) ([]byte, error) {
	b := &bytes.Buffer{}
	hdr := wire.PacketHeader{Rwnd: 64}
	if err := hdr.Write(b); err != nil {
		return nil, err
	}
	frag := wire.FragHeader{
		Cmd: wire.FragCommandPush,
		Seq: seq,
		Len: uint32(len(payload)),
	}
	if err := frag.Write(b); err != nil {
		return nil, err
	}
	b.WriteString(payload)
	return b.Bytes(), nil
}

func buildAckPacket(state dtp.UploadState) ([]byte, error) {
	b := &bytes.Buffer{}
	hdr := wire.PacketHeader{
		Rwnd: uint16(state.LocalReceivingQueueFreeLen),
		Nack: uint32(state.LocalNextSeqToReceive),
	}
	if err := hdr.Write(b); err != nil {
		return nil, err
	}
	for _, seq := range state.RemoteSeqsToAck {
		frag := wire.FragHeader{Cmd: wire.FragCommandAck, Seq: seq}
		if err := frag.Write(b); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}
