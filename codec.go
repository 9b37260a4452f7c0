package mqttv5

import (
	"errors"
	"io"
)

var (
	ErrPacketTooLarge    = errors.New("mqttv5: packet exceeds maximum size")
	ErrUnknownPacketType = errors.New("mqttv5: unknown packet type")
)

// packetFactories maps each control packet type to a constructor for its
// decode target, so ReadPacket stays a table lookup rather than a growing
// type switch as packet types are added.
var packetFactories = map[PacketType]func() Packet{
	PacketCONNECT:     func() Packet { return &ConnectPacket{} },
	PacketCONNACK:     func() Packet { return &ConnackPacket{} },
	PacketPUBLISH:     func() Packet { return &PublishPacket{} },
	PacketPUBACK:      func() Packet { return &PubackPacket{} },
	PacketPUBREC:      func() Packet { return &PubrecPacket{} },
	PacketPUBREL:      func() Packet { return &PubrelPacket{} },
	PacketPUBCOMP:     func() Packet { return &PubcompPacket{} },
	PacketSUBSCRIBE:   func() Packet { return &SubscribePacket{} },
	PacketSUBACK:      func() Packet { return &SubackPacket{} },
	PacketUNSUBSCRIBE: func() Packet { return &UnsubscribePacket{} },
	PacketUNSUBACK:    func() Packet { return &UnsubackPacket{} },
	PacketPINGREQ:     func() Packet { return &PingreqPacket{} },
	PacketPINGRESP:    func() Packet { return &PingrespPacket{} },
	PacketDISCONNECT:  func() Packet { return &DisconnectPacket{} },
	PacketAUTH:        func() Packet { return &AuthPacket{} },
}

// ReadPacket reads one complete control packet from r. A non-zero maxSize
// rejects any packet whose remaining length exceeds it with
// ErrPacketTooLarge before the payload bytes are even read off the wire.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		return nil, n, err
	}
	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, ErrPacketTooLarge
	}

	remaining := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, remaining)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	factory, ok := packetFactories[header.PacketType]
	if !ok {
		return nil, n, ErrUnknownPacketType
	}
	packet := factory()

	reader := getBytesReader(remaining)
	defer putBytesReader(reader)
	if _, err := packet.Decode(reader, header); err != nil {
		return nil, n, err
	}
	return packet, n, nil
}

// WritePacket validates packet and writes it to w. A non-zero maxSize
// encodes into scratch space first so an oversized packet is rejected
// before any bytes reach the wire.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	if err := packet.Validate(); err != nil {
		return 0, err
	}
	if maxSize == 0 {
		return packet.Encode(w)
	}

	buf := getBytesBuffer()
	defer putBytesBuffer(buf)
	n, err := packet.Encode(buf)
	if err != nil {
		return 0, err
	}
	if uint32(n) > maxSize {
		return 0, ErrPacketTooLarge
	}
	return w.Write(buf.Bytes())
}

// bytesReader adapts a byte slice to io.Reader. Kept as a dedicated type
// rather than bytes.Reader so it can be pooled and reset between packets.
type bytesReader struct {
	data []byte
	pos  int
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// bytesBuffer accumulates encoded bytes. Bytes exposes the backing slice
// directly so WritePacket can hand it to the wire without an extra copy.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Bytes() []byte {
	return b.data
}
