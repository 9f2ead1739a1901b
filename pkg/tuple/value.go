// Package tuple defines the attribute values and fixed-arity rows fed to the
// lattice enumerators.
//
// A Value only has to provide a stable elementary hash and a display string.
// Hashes are deterministic within a process and across runs of the same
// binary, but values of different kinds never share a hash domain: Int(1),
// Float(1) and Text("1") hash differently because each kind mixes its own seed.
package tuple

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/Sumatoshi-tech/lattice/internal/hashutil"
)

// Per-kind seeds keep the hash domains of different value kinds apart.
const (
	seedNull  = 0x6e756c6c00000000
	seedInt   = 0x696e740000000001
	seedFloat = 0x666c6f6174000002
	seedBool  = 0x626f6f6c00000003
	seedText  = 0x7465787400000004
)

// Value is a single attribute of a row.
type Value interface {
	// Hash returns the elementary hash of the value.
	Hash() uint64
	// String returns the display form used by diagnostic traces.
	String() string
}

// Null is the SQL-style absent attribute. It still hashes, so a lattice
// position that includes a null attribute is well defined.
type Null struct{}

// Hash implements Value.
func (Null) Hash() uint64 { return hashutil.Mix64(seedNull) }

// String implements Value.
func (Null) String() string { return "NULL" }

// Int is a signed integer attribute.
type Int int64

// Hash implements Value.
func (v Int) Hash() uint64 { return hashutil.MixHash(uint64(v), seedInt) }

// String implements Value.
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a floating point attribute.
type Float float64

// Hash implements Value. Negative zero hashes like zero and every NaN
// payload hashes alike.
func (v Float) Hash() uint64 {
	f := float64(v)

	switch {
	case f == 0:
		f = 0
	case math.IsNaN(f):
		f = math.NaN()
	}

	return hashutil.MixHash(math.Float64bits(f), seedFloat)
}

// String implements Value.
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// Bool is a boolean attribute.
type Bool bool

// Hash implements Value.
func (v Bool) Hash() uint64 {
	if v {
		return hashutil.MixHash(1, seedBool)
	}

	return hashutil.MixHash(0, seedBool)
}

// String implements Value.
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// Text is a string attribute.
type Text string

// Hash implements Value.
func (v Text) Hash() uint64 {
	var seed [8]byte

	binary.LittleEndian.PutUint64(seed[:], seedText)

	buf := make([]byte, 0, len(seed)+len(v))
	buf = append(buf, seed[:]...)
	buf = append(buf, v...)

	return hashutil.Mix64(hashutil.FNV64a(buf))
}

// String implements Value.
func (v Text) String() string { return string(v) }

// Tuple is one row: an ordered, fixed-length sequence of values.
// A nil Tuple is an absent row.
type Tuple []Value

// Hashes returns the elementary hash of every attribute, in tuple order.
func (t Tuple) Hashes() []uint64 {
	hashes := make([]uint64, len(t))

	for i, v := range t {
		hashes[i] = v.Hash()
	}

	return hashes
}

// Strings returns the display string of every attribute, in tuple order.
func (t Tuple) Strings() []string {
	out := make([]string, len(t))

	for i, v := range t {
		out[i] = v.String()
	}

	return out
}
