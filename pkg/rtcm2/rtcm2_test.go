package rtcm2

import (
	"testing"

	"github.com/northfall/gnssmux/pkg/bitutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordBuilder packs successive 24-bit data fields into a byte buffer as
// parity-valid 30-bit RTCM2/GPS words, chaining D29*/D30* the same way a
// real word stream does.
type wordBuilder struct {
	buf     []byte
	offset  int
	d29Star bool
	d30Star bool
}

func newWordBuilder(nWords int) *wordBuilder {
	return &wordBuilder{buf: make([]byte, (nWords*30+7)/8+4)}
}

func (b *wordBuilder) push(data uint32) {
	// A real stream transmits the data bits inverted after a word whose
	// D30 is set.
	if b.d30Star {
		data = ^data & 0xFFFFFF
	}
	parity := bitutil.GPSWordParity(data, b.d29Star, b.d30Star)
	word := (data << 6) | uint32(parity)
	bitutil.PutBEU(b.buf, b.offset, 30, uint64(word))
	b.offset += 30
	b.d29Star = word&(1<<1) != 0
	b.d30Star = word&1 != 0
}

func (b *wordBuilder) bytes() []byte {
	return b.buf[:(b.offset+7)/8]
}

func TestDecode_Type16Text(t *testing.T) {
	b := newWordBuilder(4)
	word1 := uint32(preamble)<<16 | uint32(16)<<10 | uint32(42)
	b.push(word1)
	word2 := uint32(100)<<11 | uint32(1)<<8 | uint32(1)<<3 | uint32(0)
	b.push(word2)
	textWord := uint32('H')<<16 | uint32('I')<<8 | uint32('!')
	b.push(textWord)

	frame, err := Decode(b.bytes())
	require.NoError(t, err)
	assert.Equal(t, 16, frame.Type)
	assert.Equal(t, 42, frame.RefStaID)
	assert.Equal(t, 1, frame.Length)
	assert.Equal(t, 10.0, frame.ZCount)
	assert.Equal(t, "HI!", frame.Text)
}

func TestDecode_RejectsBadPreamble(t *testing.T) {
	b := newWordBuilder(2)
	b.push(uint32(0x00) << 16) // wrong preamble
	b.push(0)
	_, err := Decode(b.bytes())
	assert.Error(t, err)
}

func TestDecode_RejectsCorruptedParity(t *testing.T) {
	b := newWordBuilder(2)
	word1 := uint32(preamble)<<16 | uint32(3)<<10 | uint32(1)
	b.push(word1)
	b.push(0)
	buf := b.bytes()
	buf[0] ^= 0x01 // flip a bit inside word 1's data field
	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestDecode_UnknownTypePreservesRawWords(t *testing.T) {
	b := newWordBuilder(3)
	word1 := uint32(preamble)<<16 | uint32(31)<<10 | uint32(7)
	b.push(word1)
	word2 := uint32(5)<<11 | uint32(0)<<8 | uint32(1)<<3 | uint32(0)
	b.push(word2)
	b.push(0xABCDEF)

	frame, err := Decode(b.bytes())
	require.NoError(t, err)
	assert.Equal(t, 31, frame.Type)
	require.Len(t, frame.Raw, 1)
	assert.Equal(t, uint32(0xABCDEF), frame.Raw[0])
}
