package btp

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	buf, err := hex.DecodeString("01" + "00000007" + "01" + "04" + hex.EncodeToString([]byte("auth")) + "0002" + "00000004" + hex.EncodeToString([]byte("data")) + "00000000")
	require.NoError(t, err)

	msg, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, TypeResponse, msg.Type)
	require.EqualValues(t, 7, msg.RequestID)
	require.Len(t, msg.ProtocolData, 1)
	require.Equal(t, "auth", msg.ProtocolData[0].Name)
	require.EqualValues(t, 2, msg.ProtocolData[0].ContentType)
	require.Equal(t, []byte("data"), msg.ProtocolData[0].Data)
	require.Nil(t, msg.IlpPacket)
}

func TestParseTooShort(t *testing.T) {
	_, err := Parse([]byte{1, 2, 3, 4})
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, "F00", be.Code)
	require.Equal(t, "BTP message too short", be.Reason)
}

func TestParseInvalidType(t *testing.T) {
	buf := []byte{99, 0, 0, 0, 1, 0}
	_, err := Parse(buf)
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, "Invalid BTP message type", be.Reason)
}

func TestMessageRoundTrip(t *testing.T) {
	msg := &Message{
		Type:      TypeMessage,
		RequestID: 42,
		ProtocolData: []ProtocolData{
			{Name: "payment-channel-claim", ContentType: 1, Data: []byte(`{"version":"1.0"}`)},
		},
		IlpPacket: []byte{12, 0},
	}

	buf, err := Serialize(msg)
	require.NoError(t, err)

	got, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, msg.Type, got.Type)
	require.Equal(t, msg.RequestID, got.RequestID)
	require.Equal(t, msg.ProtocolData, got.ProtocolData)
	require.Equal(t, msg.IlpPacket, got.IlpPacket)
}

func TestErrorRoundTrip(t *testing.T) {
	msg := &Message{
		Type:      TypeError,
		RequestID: 7,
		Error: &ErrorBody{
			Code:        "F00",
			Name:        "NotAcceptedError",
			TriggeredAt: "2026-02-02T12:00:00.000Z",
			Data:        []byte("boom"),
		},
	}

	buf, err := Serialize(msg)
	require.NoError(t, err)

	got, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, TypeError, got.Type)
	require.Equal(t, msg.Error, got.Error)
}

func TestMessageWithAbsentIlpPacket(t *testing.T) {
	msg := &Message{Type: TypeMessage, RequestID: 1}
	buf, err := Serialize(msg)
	require.NoError(t, err)

	got, err := Parse(buf)
	require.NoError(t, err)
	require.Nil(t, got.IlpPacket)
	require.Empty(t, got.ProtocolData)
}

func TestTruncatedProtocolDataName(t *testing.T) {
	// type, requestId, count=1, name length=10 but no bytes follow.
	buf := []byte{6, 0, 0, 0, 1, 1, 10}
	_, err := Parse(buf)
	require.Error(t, err)
}
