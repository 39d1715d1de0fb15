package bbr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkbbr/crc"
)

func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 31, EntriesPerSector)
	assert.Equal(t, SectorSize, HeaderSize+EntriesPerSector*EntrySize)
}

func TestBuildEmptyTable(t *testing.T) {
	tbl := Build(crc.IEEETable)

	assert.Equal(t, Signature, tbl.Signature)
	assert.Zero(t, tbl.SequenceNumber)
	assert.Zero(t, tbl.InUseCount)
	assert.NotZero(t, tbl.Checksum)
	for i, e := range tbl.Entries {
		assert.Equal(t, Entry{}, e, "entry %d", i)
	}
	assert.True(t, tbl.Valid(crc.IEEETable))
}

func TestSignatureIsLittleEndianOnDisk(t *testing.T) {
	tbl := Build(crc.IEEETable)
	sec, err := tbl.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, sec, SectorSize)

	assert.Equal(t, []byte("TrbB"), sec[0:4])
	assert.Equal(t, Signature, binary.LittleEndian.Uint32(sec[0:4]))
	assert.Equal(t, tbl.Checksum, binary.LittleEndian.Uint32(sec[4:8]))
	assert.Equal(t, make([]byte, SectorSize-8), sec[8:], "rest of the sector must be zero")
}

func TestChecksumCoversSectorWithFieldZeroed(t *testing.T) {
	tbl := Build(crc.IEEETable)
	sec, err := tbl.MarshalBinary()
	require.NoError(t, err)

	// Clear the stored checksum and recompute over the raw bytes.
	binary.LittleEndian.PutUint32(sec[4:8], 0)
	assert.Equal(t, tbl.Checksum, crc.Update(crc.IEEETable, InitialCRC, sec))

	// Recomputing from the stamped table is stable.
	assert.Equal(t, tbl.Checksum, tbl.Sum(crc.IEEETable))
	assert.Equal(t, tbl.Checksum, tbl.Sum(crc.IEEETable))
}

func TestBuildIsReproducible(t *testing.T) {
	a := Build(crc.IEEETable)
	b := Build(crc.MakeTable(crc.IEEE))
	assert.Equal(t, a, b)
}

func TestValidDetectsChanges(t *testing.T) {
	tbl := Build(crc.IEEETable)

	changed := tbl
	changed.Entries[3] = Entry{BadSector: 1000, ReplacementSector: 2000}
	assert.False(t, changed.Valid(crc.IEEETable))
	changed.Checksum = changed.Sum(crc.IEEETable)
	assert.True(t, changed.Valid(crc.IEEETable))

	unsigned := tbl
	unsigned.Signature = 0
	unsigned.Checksum = unsigned.Sum(crc.IEEETable)
	assert.False(t, unsigned.Valid(crc.IEEETable))
}

func TestUnmarshalBinary(t *testing.T) {
	src := Build(crc.IEEETable)
	src.SequenceNumber = 7
	src.InUseCount = 2
	src.Entries[0] = Entry{BadSector: 0x0102030405060708, ReplacementSector: 99}
	src.Entries[EntriesPerSector-1] = Entry{BadSector: 1, ReplacementSector: 2}

	sec, err := src.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, sec[HeaderSize:HeaderSize+8])

	var got Table
	require.NoError(t, got.UnmarshalBinary(sec))
	assert.Equal(t, src, got)

	require.Error(t, got.UnmarshalBinary(sec[:SectorSize-1]))
}
