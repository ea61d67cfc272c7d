// Package checksum implements the frame-integrity algorithms used by the
// protocols the lexer (pkg/lexer) frames: NMEA's XOR checksum, UBX's
// Fletcher-8, RTCM3's CRC-24Q, and the lighter-weight variants used by
// SiRF, Zodiac and Garmin binary. NMEA, UBX, RTCM3, SiRF and Garmin each
// have a Compute and a Verify method; Zodiac has Compute only, and TSIP
// has neither (see DestuffDLE).
package checksum

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/goblimey/go-crc24q/crc24q"
)

// ErrTooShort names the case of a buffer that doesn't even contain room
// for the checksum trailer itself. The Verify methods in this package
// return a bool and report that case as false rather than returning it.
var ErrTooShort = errors.New("checksum: buffer too short to contain a trailer")

// NMEA computes and verifies the 8-bit XOR checksum used by NMEA 0183 and
// AIVDM sentences: the XOR of every byte strictly between the leading
// '$'/'!' and the '*', rendered as two uppercase hex digits.
type nmeaChecksum struct{}

var NMEA nmeaChecksum

// Compute returns the two-hex-digit checksum string for the payload bytes
// (the bytes after '$'/'!' and before '*').
func (nmeaChecksum) Compute(payload []byte) string {
	var sum byte
	for _, b := range payload {
		sum ^= b
	}
	return fmt.Sprintf("%02X", sum)
}

// Verify checks a complete sentence of the form "$...,...,...*CC" (the
// leading '$' or '!' and trailing "*CC" are both required).
func (c nmeaChecksum) Verify(sentence []byte) bool {
	star := lastIndexByte(sentence, '*')
	if star < 1 || star+3 > len(sentence) {
		return false
	}
	want := strings.ToUpper(string(sentence[star+1 : star+3]))
	got := c.Compute(sentence[1:star])
	return got == want
}

func lastIndexByte(b []byte, c byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// UBX computes the two-byte Fletcher-8 checksum u-blox frames class, id,
// length and payload under (everything between the 0xB5 0x62 lead-in and
// the trailer).
type ubxChecksum struct{}

var UBX ubxChecksum

func (ubxChecksum) Compute(body []byte) (ckA, ckB byte) {
	for _, b := range body {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Verify checks a full UBX frame including the 0xB5 0x62 lead-in and the
// two trailing checksum bytes.
func (c ubxChecksum) Verify(frame []byte) bool {
	if len(frame) < 8 {
		return false
	}
	body := frame[2 : len(frame)-2]
	ckA, ckB := c.Compute(body)
	return frame[len(frame)-2] == ckA && frame[len(frame)-1] == ckB
}

// RTCM3 wraps the CRC-24Q polynomial (0x1864CFB) check RTCM3 frames use
// over the 3-byte header plus payload, borrowed from the go-crc24q
// library (also used by the goblimey-go-ntrip RTCM3 handler) rather than
// reimplemented: a direct, well-tested fit for a 24-bit table-driven CRC.
type rtcm3Checksum struct{}

var RTCM3 rtcm3Checksum

// Compute returns the 24-bit CRC-24Q of header+payload.
func (rtcm3Checksum) Compute(headerAndPayload []byte) uint32 {
	return crc24q.Hash(headerAndPayload)
}

// Verify checks a complete RTCM3 frame: 3-byte preamble/length header,
// payload, and a 3-byte CRC-24Q trailer.
func (c rtcm3Checksum) Verify(frame []byte) bool {
	if len(frame) < 6 {
		return false
	}
	body := frame[:len(frame)-3]
	crc := c.Compute(body)
	return frame[len(frame)-3] == crc24q.HiByte(crc) &&
		frame[len(frame)-2] == crc24q.MiByte(crc) &&
		frame[len(frame)-1] == crc24q.LoByte(crc)
}

// SiRF computes the 15-bit sum (modulo 0x8000) SiRF binary frames carry
// between the 0xA0 0xA2 lead-in and the trailer.
type sirfChecksum struct{}

var SiRF sirfChecksum

func (sirfChecksum) Compute(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum = (sum + uint16(b)) & 0x7FFF
	}
	return sum
}

func (c sirfChecksum) Verify(frame []byte) bool {
	if len(frame) < 8 {
		return false
	}
	length := int(frame[2])<<8 | int(frame[3])
	if len(frame) < 4+length+4 {
		return false
	}
	payload := frame[4 : 4+length]
	want := uint16(frame[4+length])<<8 | uint16(frame[4+length+1])
	return c.Compute(payload) == want
}

// Zodiac computes the 16-bit two's-complement checksum carried in a
// Zodiac binary header (over the header words only, excluding the
// checksum word itself).
type zodiacChecksum struct{}

var Zodiac zodiacChecksum

func (zodiacChecksum) Compute(header []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint16(header[i]) | uint16(header[i+1])<<8
	}
	return -sum
}

// Garmin computes the 8-bit two's-complement checksum over a Garmin
// binary packet's id, length and payload.
type garminChecksum struct{}

var Garmin garminChecksum

func (garminChecksum) Compute(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return -sum
}

func (c garminChecksum) Verify(frame []byte) bool {
	if len(frame) < 1 {
		return false
	}
	body := frame[:len(frame)-1]
	return c.Compute(body) == frame[len(frame)-1]
}

// TSIP has no payload checksum: framing integrity comes entirely from DLE
// (0x10) byte-stuffing, verified by the lexer's accumulation state rather
// than a standalone Compute/Verify pair. DestuffDLE undoes stuffing: every
// literal 0x10 in the payload is doubled by the sender and collapsed back
// to one here.
func DestuffDLE(stuffed []byte) []byte {
	out := make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		out = append(out, stuffed[i])
		if stuffed[i] == 0x10 && i+1 < len(stuffed) && stuffed[i+1] == 0x10 {
			i++
		}
	}
	return out
}

// DecodeHexPair parses the two-hex-digit NMEA checksum trailer text into
// its byte value, used when comparing against a recomputed checksum.
func DecodeHexPair(s string) (byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, fmt.Errorf("checksum: invalid hex pair %q", s)
	}
	return b[0], nil
}
