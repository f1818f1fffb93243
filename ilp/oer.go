package ilp

import (
	"encoding/binary"
	"fmt"
)

// readOERLength reads an OER variable-length length prefix from buf starting
// at offset, returning the decoded length and the offset of the first byte
// following the prefix. A leading byte with its high bit clear is the length
// itself (0-127). A leading byte with the high bit set holds, in its low 7
// bits, the number of subsequent big-endian bytes that encode the length.
func readOERLength(buf []byte, offset int) (length int, next int, err error) {
	if offset >= len(buf) {
		return 0, 0, fmt.Errorf("truncated OER length prefix")
	}
	first := buf[offset]
	if first&0x80 == 0 {
		return int(first), offset + 1, nil
	}
	n := int(first & 0x7f)
	if n == 0 || n > 8 {
		return 0, 0, fmt.Errorf("invalid OER length-of-length %d", n)
	}
	if offset+1+n > len(buf) {
		return 0, 0, fmt.Errorf("truncated OER length bytes")
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(buf[offset+1+i])
	}
	return int(v), offset + 1 + n, nil
}

// appendOERLength appends the OER variable-length encoding of length to buf.
func appendOERLength(buf []byte, length int) []byte {
	if length < 128 {
		return append(buf, byte(length))
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(length))
	i := 0
	for i < len(tmp)-1 && tmp[i] == 0 {
		i++
	}
	lenBytes := tmp[i:]
	buf = append(buf, 0x80|byte(len(lenBytes)))
	buf = append(buf, lenBytes...)
	return buf
}

// readOERVarOctets reads an OER-length-prefixed byte string starting at
// offset and returns the bytes plus the offset following them.
func readOERVarOctets(buf []byte, offset int) (data []byte, next int, err error) {
	length, next, err := readOERLength(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	if next+length > len(buf) {
		return nil, 0, fmt.Errorf("truncated OER octet string of length %d", length)
	}
	return buf[next : next+length], next + length, nil
}

// appendOERVarOctets appends the OER length-prefixed encoding of data to buf.
func appendOERVarOctets(buf []byte, data []byte) []byte {
	buf = appendOERLength(buf, len(data))
	return append(buf, data...)
}
