package mqttv5

import (
	"bytes"
	"io"
)

// UnsubscribePacket represents an MQTT UNSUBSCRIBE packet.
// MQTT v5.0 spec: Section 3.10
type UnsubscribePacket struct {
	PacketID     uint16
	Props        Properties
	TopicFilters []string
}

func (p *UnsubscribePacket) Type() PacketType { return PacketUNSUBSCRIBE }

func (p *UnsubscribePacket) Properties() *Properties { return &p.Props }

func (p *UnsubscribePacket) GetPacketID() uint16 { return p.PacketID }

func (p *UnsubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

func (p *UnsubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if len(p.TopicFilters) == 0 {
		return ErrProtocolViolation
	}
	for _, tf := range p.TopicFilters {
		if tf == "" {
			return ErrProtocolViolation
		}
	}
	return nil
}

func (p *UnsubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := p.Props.ValidateFor(PropCtxUNSUBSCRIBE); err != nil {
		return 0, err
	}

	var body bytes.Buffer
	if _, err := putPacketID(&body, p.PacketID); err != nil {
		return 0, err
	}
	if _, err := p.Props.Encode(&body); err != nil {
		return 0, err
	}
	for _, tf := range p.TopicFilters {
		if _, err := encodeString(&body, tf); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{
		PacketType:      PacketUNSUBSCRIBE,
		Flags:           0x02, // UNSUBSCRIBE must have flags 0x02
		RemainingLength: uint32(body.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(body.Bytes())
	return total + n, err
}

func (p *UnsubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketUNSUBSCRIBE {
		return 0, ErrInvalidPacketType
	}
	if header.Flags != 0x02 {
		return 0, ErrInvalidPacketFlags
	}

	id, total, err := getPacketID(r)
	if err != nil {
		return total, err
	}
	p.PacketID = id

	n, err := p.Props.Decode(r)
	total += n
	if err != nil {
		return total, err
	}
	if err := p.Props.ValidateFor(PropCtxUNSUBSCRIBE); err != nil {
		return total, err
	}

	p.TopicFilters = nil
	for total < int(header.RemainingLength) {
		topicFilter, n, err := decodeString(r)
		total += n
		if err != nil {
			return total, err
		}
		p.TopicFilters = append(p.TopicFilters, topicFilter)
	}

	return total, nil
}
