// Package crc implements the table-driven, reflected CRC-32 fold used to
// checksum BBR table sectors.
//
// Unlike hash/crc32, Update applies no pre- or post-inversion: the caller
// supplies the initial accumulator and receives the raw final accumulator.
package crc

// Predefined reflected polynomials.
const (
	// IEEE is the polynomial used by the BBR on-disk format.
	IEEE = 0xedb88320

	// Castagnoli is the CRC-32C polynomial.
	Castagnoli = 0x82f63b78
)

// Initial is the conventional starting accumulator.
const Initial uint32 = 0xffffffff

// Table is a 256-entry lookup table. A Table is immutable once built.
type Table [256]uint32

// IEEETable is built once at package initialization.
var IEEETable = MakeTable(IEEE)

// MakeTable returns the lookup table for the given reflected polynomial.
func MakeTable(poly uint32) *Table {
	t := new(Table)
	for i := range t {
		c := uint32(i)
		for j := 0; j < 8; j++ {
			if c&1 == 1 {
				c = (c >> 1) ^ poly
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}

// Update folds p into the accumulator seed and returns the new accumulator.
func Update(tab *Table, seed uint32, p []byte) uint32 {
	c := seed
	for _, b := range p {
		c = ((c >> 8) & 0x00ffffff) ^ tab[(c^uint32(b))&0xff]
	}
	return c
}

// Checksum returns the IEEE fold of p starting from Initial.
func Checksum(p []byte) uint32 {
	return Update(IEEETable, Initial, p)
}
