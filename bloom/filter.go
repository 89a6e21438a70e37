// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	btcbloom "github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/wire"
)

// ln2Squared is simply the square of the natural log of 2.
const ln2Squared = math.Ln2 * math.Ln2

// maxBitmapBytes is the largest bitmap whose bit count still fits the 32-bit
// hash modulus.
const maxBitmapBytes = math.MaxUint32 / 8

var (
	// ErrInvalidArgument is returned when a filter is requested with a zero
	// size, zero expected elements, or a false positive rate outside of the
	// open interval (0, 1).
	ErrInvalidArgument = errors.New("invalid filter argument")

	// ErrExceedsWireLimits is returned by CheckWireLimits when a filter is
	// larger, or uses more hash functions, than peers accept in a filterload
	// message.
	ErrExceedsWireLimits = errors.New("filter exceeds filterload limits")
)

// TweakSource produces the random nonce mixed into every hash of a filter.
type TweakSource func() uint32

// defaultTweakSource draws tweaks from the process wide random source.
func defaultTweakSource() uint32 {
	return rand.Uint32()
}

// Option customizes a filter during construction.
type Option func(*Filter)

// WithTweakSource overrides the source the filter draws its tweak from.
func WithTweakSource(src TweakSource) Option {
	return func(f *Filter) {
		f.tweak = src()
	}
}

// WithTweak pins the tweak of the filter to the passed value.
func WithTweak(tweak uint32) Option {
	return func(f *Filter) {
		f.tweak = tweak
	}
}

// WithFlags sets the update behavior peers apply when the filter matches.
func WithFlags(flags wire.BloomUpdateType) Option {
	return func(f *Filter) {
		f.flags = flags
	}
}

// Filter defines a BIP37 bloom filter.  The filter is not safe for
// concurrent mutation; callers must serialize Add calls.  MsgFilterLoad
// returns an independent copy which can be shared freely.
type Filter struct {
	data      []byte
	hashFuncs uint32
	tweak     uint32
	flags     wire.BloomUpdateType
}

// ComputeBitmapSize returns the number of bytes a bitmap needs to hold the
// given number of elements at the target false positive rate.
//
// Equivalent to m = -(n*ln(p) / ln(2)^2) bits, rounded up to whole bytes.
func ComputeBitmapSize(elements uint32, fprate float64) (uint32, error) {
	if elements == 0 {
		return 0, fmt.Errorf("%w: zero expected elements",
			ErrInvalidArgument)
	}
	if !(fprate > 0 && fprate < 1) {
		return 0, fmt.Errorf("%w: false positive rate %v not in (0, 1)",
			ErrInvalidArgument, fprate)
	}

	size := math.Ceil(float64(elements) * math.Log(fprate) / (-8 * ln2Squared))
	if size > maxBitmapBytes {
		return 0, fmt.Errorf("%w: bitmap of %.0f bytes is too large",
			ErrInvalidArgument, size)
	}
	return uint32(size), nil
}

// OptimalHashFuncs returns the number of hash functions that minimizes the
// false positive rate of a bitmap of the given number of bits holding the
// given number of elements.  The result is never less than one.
//
// Equivalent to k = ceil((m/n) * ln(2)).
func OptimalHashFuncs(bitmapBits uint64, elements uint32) uint32 {
	if elements == 0 {
		return 1
	}
	k := math.Ceil(float64(bitmapBits) / float64(elements) * math.Ln2)
	if k < 1 {
		return 1
	}
	if k > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(k)
}

// New creates an empty filter with a bitmap of bitmapSize bytes tuned for the
// expected number of elements.  The tweak is drawn from the process random
// source unless overridden with an Option.
func New(bitmapSize, elements uint32, opts ...Option) (*Filter, error) {
	if bitmapSize == 0 || elements == 0 {
		return nil, fmt.Errorf("%w: bitmap size %d, elements %d",
			ErrInvalidArgument, bitmapSize, elements)
	}
	if bitmapSize > maxBitmapBytes {
		return nil, fmt.Errorf("%w: bitmap of %d bytes is too large",
			ErrInvalidArgument, bitmapSize)
	}

	bits := uint64(bitmapSize) * 8
	f := &Filter{
		data:      make([]byte, bitmapSize),
		hashFuncs: OptimalHashFuncs(bits, elements),
		tweak:     defaultTweakSource(),
		flags:     wire.BloomUpdateNone,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// NewForFPRate creates an empty filter sized to hold the expected number of
// elements at the target false positive rate, which must be in (0, 1).
func NewForFPRate(elements uint32, fprate float64, opts ...Option) (*Filter, error) {
	size, err := ComputeBitmapSize(elements, fprate)
	if err != nil {
		return nil, err
	}
	return New(size, elements, opts...)
}

// LoadFilter creates a new Filter from the passed filterload message.  The
// message contents are copied so later changes to either side are not
// observed by the other.
func LoadFilter(msg *wire.MsgFilterLoad) (*Filter, error) {
	if msg == nil || len(msg.Filter) == 0 {
		return nil, fmt.Errorf("%w: empty filterload message",
			ErrInvalidArgument)
	}
	if uint64(len(msg.Filter)) > maxBitmapBytes {
		return nil, fmt.Errorf("%w: bitmap of %d bytes is too large",
			ErrInvalidArgument, len(msg.Filter))
	}

	data := make([]byte, len(msg.Filter))
	copy(data, msg.Filter)

	return &Filter{
		data:      data,
		hashFuncs: msg.HashFuncs,
		tweak:     msg.Tweak,
		flags:     msg.Flags,
	}, nil
}

// hash returns the bit offset in the bloom filter which corresponds to the
// passed data for the given independent hash function number.
func (f *Filter) hash(hashNum uint32, data []byte) uint32 {
	// bitcoind: 0xfba4c795 chosen as it guarantees a reasonable bit
	// difference between hashNum values.
	mm := btcbloom.MurmurHash3(hashNum*0xfba4c795+f.tweak, data)
	return mm % f.bitmapBits()
}

// bitmapBits returns the number of addressable bits in the filter.
func (f *Filter) bitmapBits() uint32 {
	return uint32(len(f.data)) << 3
}

// Add adds the passed byte slice to the bloom filter.
func (f *Filter) Add(data []byte) {
	// The shifts and masks below are a faster equivalent of:
	//   arrayIndex := idx / 8    (idx >> 3)
	//   bitOffset := idx % 8     (idx & 7)
	///  filter[arrayIndex] |= 1<<bitOffset
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data)
		f.data[idx>>3] |= 1 << (idx & 7)
	}
}

// Matches returns true if the bloom filter might contain the passed data and
// false if it definitely does not.
func (f *Filter) Matches(data []byte) bool {
	if f.hashFuncs == 0 {
		return false
	}

	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data)
		if f.data[idx>>3]&(1<<(idx&7)) == 0 {
			return false
		}
	}
	return true
}

// IsEmpty returns true when no bit of the filter is set.
func (f *Filter) IsEmpty() bool {
	for _, b := range f.data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Size returns the size of the bitmap in bytes.
func (f *Filter) Size() int {
	return len(f.data)
}

// HashFuncs returns the number of hash functions applied per element.
func (f *Filter) HashFuncs() uint32 {
	return f.hashFuncs
}

// Tweak returns the nonce mixed into every hash of the filter.
func (f *Filter) Tweak() uint32 {
	return f.tweak
}

// Flags returns the update behavior requested from peers.
func (f *Filter) Flags() wire.BloomUpdateType {
	return f.flags
}

// CheckWireLimits returns ErrExceedsWireLimits if the filter can not be sent
// in a filterload message.
func (f *Filter) CheckWireLimits() error {
	if len(f.data) > wire.MaxFilterLoadFilterSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrExceedsWireLimits,
			len(f.data), wire.MaxFilterLoadFilterSize)
	}
	if f.hashFuncs > wire.MaxFilterLoadHashFuncs {
		return fmt.Errorf("%w: %d hash functions, max %d",
			ErrExceedsWireLimits, f.hashFuncs,
			wire.MaxFilterLoadHashFuncs)
	}
	return nil
}

// MsgFilterLoad returns the wire form of the filter.  The returned message
// owns a copy of the bitmap, so it stays unchanged when more data is added to
// the filter afterwards.
func (f *Filter) MsgFilterLoad() *wire.MsgFilterLoad {
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return wire.NewMsgFilterLoad(data, f.hashFuncs, f.tweak, f.flags)
}
