// Package bbr builds bad-block relocation (BBR) tables and writes their
// redundant replicas to a device or image file.
//
// A BBR table occupies exactly one 512-byte sector:
//
//	offset  size  field
//	0       4     signature        (LE, 0x42627254)
//	4       4     checksum         (LE, CRC of the sector with this field zero)
//	8       4     sequence number  (LE)
//	12      4     in-use count     (LE)
//	16      496   31 entries of (bad sector u64 LE, replacement sector u64 LE)
package bbr

import (
	"encoding/binary"
	"fmt"

	"mkbbr/crc"
)

const (
	SectorSize       = 512
	HeaderSize       = 16
	EntrySize        = 16
	EntriesPerSector = (SectorSize - HeaderSize) / EntrySize

	// Signature identifies a BBR table sector ("TrbB" on disk).
	Signature uint32 = 0x42627254

	// InitialCRC seeds the table checksum.
	InitialCRC = crc.Initial
)

const checksumOffset = 4

// Entry maps a failed sector to its replacement.
type Entry struct {
	BadSector         uint64
	ReplacementSector uint64
}

// Table is the in-memory form of one BBR table sector.
type Table struct {
	Signature      uint32
	Checksum       uint32
	SequenceNumber uint32
	InUseCount     uint32
	Entries        [EntriesPerSector]Entry
}

// Build returns an empty table stamped with the signature and its checksum.
func Build(tab *crc.Table) Table {
	t := Table{Signature: Signature}
	t.Checksum = t.Sum(tab)
	return t
}

// Sum computes the checksum of t as it would be encoded with the checksum
// field zero. The stored Checksum is ignored.
func (t *Table) Sum(tab *crc.Table) uint32 {
	var sec [SectorSize]byte
	t.put(sec[:])
	binary.LittleEndian.PutUint32(sec[checksumOffset:], 0)
	return crc.Update(tab, InitialCRC, sec[:])
}

// Valid reports whether t carries the BBR signature and a matching checksum.
func (t *Table) Valid(tab *crc.Table) bool {
	return t.Signature == Signature && t.Checksum == t.Sum(tab)
}

// MarshalBinary encodes t into exactly one sector.
func (t *Table) MarshalBinary() ([]byte, error) {
	sec := make([]byte, SectorSize)
	t.put(sec)
	return sec, nil
}

// UnmarshalBinary decodes one sector into t.
func (t *Table) UnmarshalBinary(b []byte) error {
	if len(b) != SectorSize {
		return fmt.Errorf("bbr table: need %d bytes, got %d", SectorSize, len(b))
	}
	t.Signature = binary.LittleEndian.Uint32(b[0:])
	t.Checksum = binary.LittleEndian.Uint32(b[4:])
	t.SequenceNumber = binary.LittleEndian.Uint32(b[8:])
	t.InUseCount = binary.LittleEndian.Uint32(b[12:])
	for i := range t.Entries {
		o := HeaderSize + i*EntrySize
		t.Entries[i].BadSector = binary.LittleEndian.Uint64(b[o:])
		t.Entries[i].ReplacementSector = binary.LittleEndian.Uint64(b[o+8:])
	}
	return nil
}

func (t *Table) put(sec []byte) {
	binary.LittleEndian.PutUint32(sec[0:], t.Signature)
	binary.LittleEndian.PutUint32(sec[4:], t.Checksum)
	binary.LittleEndian.PutUint32(sec[8:], t.SequenceNumber)
	binary.LittleEndian.PutUint32(sec[12:], t.InUseCount)
	for i, e := range t.Entries {
		o := HeaderSize + i*EntrySize
		binary.LittleEndian.PutUint64(sec[o:], e.BadSector)
		binary.LittleEndian.PutUint64(sec[o+8:], e.ReplacementSector)
	}
}
