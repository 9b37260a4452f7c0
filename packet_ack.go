package mqttv5

import (
	"bytes"
	"io"
)

// ackPacket is a helper for encoding/decoding simple acknowledgment packets
// (PUBACK, PUBREC, PUBREL, PUBCOMP). They all share the same wire shape:
// a packet ID, an optional reason code, and optional properties.
type ackPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

// hasReasonCode reports whether the reason code and properties fields
// must be present on the wire: MQTT allows omitting both when the reason
// is success and there are no properties, to keep the common case small.
func (a *ackPacket) hasReasonCode() bool {
	return a.ReasonCode != ReasonSuccess || a.Props.Len() > 0
}

// encodeAck encodes an acknowledgment packet with the given packet type and flags.
func encodeAck(w io.Writer, packetType PacketType, flags byte, ack *ackPacket) (int, error) {
	var body bytes.Buffer

	if _, err := putPacketID(&body, ack.PacketID); err != nil {
		return 0, err
	}

	if ack.hasReasonCode() {
		if err := body.WriteByte(byte(ack.ReasonCode)); err != nil {
			return 2, err
		}
		if ack.Props.Len() > 0 {
			if _, err := ack.Props.Encode(&body); err != nil {
				return 3, err
			}
		}
	}

	header := FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: uint32(body.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(body.Bytes())
	return total + n, err
}

// decodeAck decodes an acknowledgment packet with property validation.
func decodeAck(r io.Reader, header FixedHeader, ack *ackPacket, propCtx PropertyContext) (int, error) {
	id, total, err := getPacketID(r)
	if err != nil {
		return total, err
	}
	ack.PacketID = id

	if header.RemainingLength <= 2 {
		ack.ReasonCode = ReasonSuccess
		return total, nil
	}

	var reasonBuf [1]byte
	n, err := io.ReadFull(r, reasonBuf[:])
	total += n
	if err != nil {
		return total, err
	}
	ack.ReasonCode = ReasonCode(reasonBuf[0])

	if header.RemainingLength <= 3 {
		return total, nil
	}

	n, err = ack.Props.Decode(r)
	total += n
	if err != nil {
		return total, err
	}
	if err := ack.Props.ValidateFor(propCtx); err != nil {
		return total, err
	}

	return total, nil
}
