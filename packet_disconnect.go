//nolint:dupl // MQTT v5.0 requires separate packet types with same structure
package mqttv5

import (
	"bytes"
	"io"
)

// DisconnectPacket represents an MQTT DISCONNECT packet.
// MQTT v5.0 spec: Section 3.14
type DisconnectPacket struct {
	ReasonCode ReasonCode
	Props      Properties
}

func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

func (p *DisconnectPacket) Properties() *Properties { return &p.Props }

func (p *DisconnectPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := p.Props.ValidateFor(PropCtxDISCONNECT); err != nil {
		return 0, err
	}

	var body bytes.Buffer
	if p.ReasonCode != ReasonSuccess || p.Props.Len() > 0 {
		if err := body.WriteByte(byte(p.ReasonCode)); err != nil {
			return 0, err
		}
		if p.Props.Len() > 0 {
			if _, err := p.Props.Encode(&body); err != nil {
				return 0, err
			}
		}
	}

	header := FixedHeader{
		PacketType:      PacketDISCONNECT,
		Flags:           0x00,
		RemainingLength: uint32(body.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(body.Bytes())
	return total + n, err
}

func (p *DisconnectPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketDISCONNECT {
		return 0, ErrInvalidPacketType
	}
	if header.Flags != 0x00 {
		return 0, ErrInvalidPacketFlags
	}

	if header.RemainingLength == 0 {
		p.ReasonCode = ReasonSuccess
		return 0, nil
	}

	var total int
	var reasonBuf [1]byte
	n, err := io.ReadFull(r, reasonBuf[:])
	total += n
	if err != nil {
		return total, err
	}
	p.ReasonCode = ReasonCode(reasonBuf[0])

	if header.RemainingLength == 1 {
		return total, nil
	}

	n, err = p.Props.Decode(r)
	total += n
	if err != nil {
		return total, err
	}
	if err := p.Props.ValidateFor(PropCtxDISCONNECT); err != nil {
		return total, err
	}

	return total, nil
}

func (p *DisconnectPacket) Validate() error {
	if !p.ReasonCode.ValidForDISCONNECT() {
		return ErrInvalidReasonCode
	}
	return nil
}
