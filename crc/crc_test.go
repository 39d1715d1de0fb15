package crc

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTableMatchesStdlib(t *testing.T) {
	for _, poly := range []uint32{IEEE, Castagnoli, crc32.Koopman} {
		got := MakeTable(poly)
		want := crc32.MakeTable(poly)
		require.Equal(t, [256]uint32(*want), [256]uint32(*got), "poly %#x", poly)
	}
}

func TestMakeTableKnownEntries(t *testing.T) {
	tab := MakeTable(IEEE)
	assert.Equal(t, uint32(0x00000000), tab[0])
	assert.Equal(t, uint32(0x77073096), tab[1])
	assert.Equal(t, uint32(0x2d02ef8d), tab[255])
}

func TestChecksumCheckValue(t *testing.T) {
	// The raw fold is the standard CRC-32 without the final inversion.
	got := Checksum([]byte("123456789"))
	assert.Equal(t, ^uint32(0xcbf43926), got)
}

func TestUpdateAgainstStdlib(t *testing.T) {
	stdTab := crc32.MakeTable(crc32.IEEE)
	bufs := [][]byte{
		nil,
		{0},
		[]byte("bad block relocation"),
		make([]byte, 512),
	}
	for _, seed := range []uint32{0, Initial, 0x12345678} {
		for _, b := range bufs {
			want := ^crc32.Update(^seed, stdTab, b)
			assert.Equal(t, want, Update(IEEETable, seed, b), "seed %#x len %d", seed, len(b))
		}
	}
}

func TestUpdateEmptyReturnsSeed(t *testing.T) {
	assert.Equal(t, Initial, Update(IEEETable, Initial, nil))
	assert.Equal(t, uint32(42), Update(IEEETable, 42, []byte{}))
}

func TestUpdateDeterministic(t *testing.T) {
	buf := make([]byte, 512)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	first := Checksum(buf)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Checksum(buf))
	}
	// Folding in two pieces gives the same result as one pass.
	split := Update(IEEETable, Update(IEEETable, Initial, buf[:100]), buf[100:])
	assert.Equal(t, first, split)
}

func TestUpdateWithSubstitutedPolynomial(t *testing.T) {
	tab := MakeTable(Castagnoli)
	stdTab := crc32.MakeTable(crc32.Castagnoli)
	p := []byte("123456789")
	assert.Equal(t, ^crc32.Checksum(p, stdTab), Update(tab, Initial, p))
	assert.NotEqual(t, Checksum(p), Update(tab, Initial, p))
}
