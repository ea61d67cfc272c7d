package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNMEAVerify_GGA(t *testing.T) {
	sentence := []byte("$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F\r\n")
	// trim CRLF, Verify operates on the sentence up to and including the
	// two checksum hex digits.
	trimmed := sentence[:len(sentence)-2]
	assert.True(t, NMEA.Verify(trimmed))
}

func TestNMEAVerify_CorruptedByte(t *testing.T) {
	sentence := []byte("$GPGGA,172814.0,3723.46587704,N,12202.26957864,X,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F")
	assert.False(t, NMEA.Verify(sentence))
}

func TestUBXVerify(t *testing.T) {
	// class=0x01 id=0x02 len=0 (empty payload)
	body := []byte{0x01, 0x02, 0x00, 0x00}
	ckA, ckB := UBX.Compute(body)
	frame := append([]byte{0xB5, 0x62}, body...)
	frame = append(frame, ckA, ckB)
	assert.True(t, UBX.Verify(frame))

	frame[len(frame)-1] ^= 0xFF
	assert.False(t, UBX.Verify(frame))
}

func TestRTCM3Verify_Type1005(t *testing.T) {
	frame := []byte{
		0xD3, 0x00, 0x13,
		0x3E, 0xD0, 0x00, 0x03, 0x8A, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xC2, 0x3D, 0x43,
	}
	require.True(t, RTCM3.Verify(frame))
}

func TestSiRFVerify(t *testing.T) {
	payload := []byte{0x02, 0x01, 0x02, 0x03}
	sum := SiRF.Compute(payload)
	frame := []byte{0xA0, 0xA2, 0x00, byte(len(payload))}
	frame = append(frame, payload...)
	frame = append(frame, byte(sum>>8), byte(sum), 0xB0, 0xB3)
	assert.True(t, SiRF.Verify(frame))
}

func TestGarminVerify(t *testing.T) {
	body := []byte{0x0A, 0x02, 0x01, 0x02}
	cksum := Garmin.Compute(body)
	frame := append(append([]byte{}, body...), cksum)
	assert.True(t, Garmin.Verify(frame))
}

func TestDestuffDLE(t *testing.T) {
	stuffed := []byte{0x10, 0x8E, 0x10, 0x10, 0xAB, 0x10, 0x03}
	got := DestuffDLE(stuffed)
	assert.Equal(t, []byte{0x10, 0x8E, 0x10, 0xAB, 0x10, 0x03}, got)
}
