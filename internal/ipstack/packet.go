package ipstack

import "encoding/binary"

// Protocol numbers, reused from the IANA assignments the kernel package
// mirrors for its simulated IP headers.
const (
	ProtoTCP = 6
	ProtoUDP = 17
)

// TCP segment types carried in the packet header's ptype field. These exist
// only between two ipstack instances; they never cross a real IP network.
const (
	ptypeNone = iota
	ptypeSYN
	ptypeSYNACK
	ptypeData
	ptypeAck
	ptypeFin
	ptypeRst
)

// headerLen is the fixed wire header size: proto(1) ptype(1) srcPort(2)
// dstPort(2) seq(4) ack(4) length(2).
const headerLen = 16

type header struct {
	proto   uint8
	ptype   uint8
	srcPort uint16
	dstPort uint16
	seq     uint32
	ack     uint32
	length  uint16
}

func (h header) encode(payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = h.proto
	buf[1] = h.ptype
	binary.BigEndian.PutUint16(buf[2:4], h.srcPort)
	binary.BigEndian.PutUint16(buf[4:6], h.dstPort)
	binary.BigEndian.PutUint32(buf[6:10], h.seq)
	binary.BigEndian.PutUint32(buf[10:14], h.ack)
	binary.BigEndian.PutUint16(buf[14:16], uint16(len(payload)))
	copy(buf[headerLen:], payload)
	return buf
}

func decode(buf []byte) (header, []byte, bool) {
	if len(buf) < headerLen {
		return header{}, nil, false
	}
	h := header{
		proto:   buf[0],
		ptype:   buf[1],
		srcPort: binary.BigEndian.Uint16(buf[2:4]),
		dstPort: binary.BigEndian.Uint16(buf[4:6]),
		seq:     binary.BigEndian.Uint32(buf[6:10]),
		ack:     binary.BigEndian.Uint32(buf[10:14]),
		length:  binary.BigEndian.Uint16(buf[14:16]),
	}
	payload := buf[headerLen:]
	if int(h.length) > len(payload) {
		return header{}, nil, false
	}
	return h, payload[:h.length], true
}
