package btp

import "encoding/binary"

// minHeaderLen is the 1-byte type tag plus the 4-byte big-endian request id
// that precede every BTP message.
const minHeaderLen = 5

// reader is a forward-only cursor over a BTP buffer. Every read checks
// bounds and reports truncation via *Error("F00", ...); no field is ever
// re-read once consumed.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) u8(field string) (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, frameError("truncated " + field)
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16(field string) (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, frameError("truncated " + field)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) u32(field string) (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, frameError("truncated " + field)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int, field string) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, frameError("truncated " + field)
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *reader) u8LenString(field string) (string, error) {
	n, err := r.u8(field + " length")
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n), field)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) u32LenBytes(field string) ([]byte, error) {
	n, err := r.u32(field + " length")
	if err != nil {
		return nil, err
	}
	b, err := r.bytes(int(n), field)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Parse decodes a framed BTP message from buf.
func Parse(buf []byte) (*Message, error) {
	if len(buf) < minHeaderLen {
		return nil, frameError("BTP message too short")
	}

	r := &reader{buf: buf}
	typeByte, err := r.u8("message type")
	if err != nil {
		return nil, err
	}
	msgType := MessageType(typeByte)
	if !msgType.valid() {
		return nil, frameError("Invalid BTP message type")
	}
	requestID, err := r.u32("request id")
	if err != nil {
		return nil, err
	}

	msg := &Message{Type: msgType, RequestID: requestID}

	if msgType == TypeError {
		code, err := r.u8LenString("error code")
		if err != nil {
			return nil, err
		}
		name, err := r.u8LenString("error name")
		if err != nil {
			return nil, err
		}
		triggeredAt, err := r.u8LenString("error triggeredAt")
		if err != nil {
			return nil, err
		}
		data, err := r.u32LenBytes("error data")
		if err != nil {
			return nil, err
		}
		msg.Error = &ErrorBody{Code: code, Name: name, TriggeredAt: triggeredAt, Data: data}
		return msg, nil
	}

	count, err := r.u8("protocol data count")
	if err != nil {
		return nil, err
	}
	entries := make([]ProtocolData, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := r.u8LenString("protocol data name")
		if err != nil {
			return nil, err
		}
		contentType, err := r.u16("protocol data content type")
		if err != nil {
			return nil, err
		}
		data, err := r.u32LenBytes("protocol data payload")
		if err != nil {
			return nil, err
		}
		entries = append(entries, ProtocolData{Name: name, ContentType: contentType, Data: data})
	}
	msg.ProtocolData = entries

	ilpLen, err := r.u32("ILP packet length")
	if err != nil {
		return nil, err
	}
	if ilpLen > 0 {
		ilpPacket, err := r.bytes(int(ilpLen), "ILP packet")
		if err != nil {
			return nil, err
		}
		msg.IlpPacket = ilpPacket
	}

	return msg, nil
}

// Serialize encodes msg to its canonical BTP wire bytes. The Error variant
// is selected by msg.Type, not by whether msg.Error is non-nil.
func Serialize(msg *Message) ([]byte, error) {
	if msg.Type == TypeError {
		return serializeError(msg), nil
	}
	return serializeMessage(msg), nil
}

func serializeError(msg *Message) []byte {
	eb := msg.Error
	if eb == nil {
		eb = &ErrorBody{}
	}
	size := minHeaderLen + 1 + len(eb.Code) + 1 + len(eb.Name) + 1 + len(eb.TriggeredAt) + 4 + len(eb.Data)
	buf := make([]byte, 0, size)
	buf = appendHeader(buf, msg.Type, msg.RequestID)
	buf = appendU8String(buf, eb.Code)
	buf = appendU8String(buf, eb.Name)
	buf = appendU8String(buf, eb.TriggeredAt)
	buf = appendU32Bytes(buf, eb.Data)
	return buf
}

func serializeMessage(msg *Message) []byte {
	size := minHeaderLen + 1
	for _, pd := range msg.ProtocolData {
		size += 1 + len(pd.Name) + 2 + 4 + len(pd.Data)
	}
	size += 4 + len(msg.IlpPacket)

	buf := make([]byte, 0, size)
	buf = appendHeader(buf, msg.Type, msg.RequestID)
	buf = append(buf, byte(len(msg.ProtocolData)))
	for _, pd := range msg.ProtocolData {
		buf = appendU8String(buf, pd.Name)
		var ct [2]byte
		binary.BigEndian.PutUint16(ct[:], pd.ContentType)
		buf = append(buf, ct[:]...)
		buf = appendU32Bytes(buf, pd.Data)
	}
	buf = appendU32Bytes(buf, msg.IlpPacket)
	return buf
}

func appendHeader(buf []byte, t MessageType, requestID uint32) []byte {
	buf = append(buf, byte(t))
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], requestID)
	return append(buf, id[:]...)
}

func appendU8String(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func appendU32Bytes(buf []byte, data []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf = append(buf, n[:]...)
	return append(buf, data...)
}
