/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cpc

import (
	"fmt"

	"github.com/openskx/cpc-go/internal"
)

// CpcCompressedState is the in-memory staging area between a live CpcSketch
// and its wire image: every field here maps directly onto a preamble field
// or compressed stream, so exportToMemory is a straight field-by-field
// write and importFromMemory a straight field-by-field read.
type CpcCompressedState struct {
	CsvIsValid    bool
	WindowIsValid bool
	LgK           int
	SeedHash      int16
	FiCol         int
	MergeFlag     bool // compliment of HIP Flag
	NumCoupons    uint64

	Kxp         float64
	HipEstAccum float64

	NumCsv        uint64
	CsvStream     []int // may be longer than required
	CsvLengthInts int
	CwStream      []int // may be longer than required
	CwLengthInts  int
}

// This defines the preamble space required by each of the formats in units of 4-byte integers.
var preIntsDefs = []byte{2, 2, 4, 8, 4, 8, 6, 10}

func NewCpcCompressedState(lgK int, seedHash int16) *CpcCompressedState {
	return &CpcCompressedState{
		LgK:      lgK,
		SeedHash: seedHash,
		Kxp:      float64(int(1) << lgK),
	}
}

func (c *CpcCompressedState) getRequiredSerializedBytes() int {
	preInts := getDefinedPreInts(c.getFormat())
	return 4 * (preInts + c.CsvLengthInts + c.CwLengthInts)
}

func (c *CpcCompressedState) getWindowOffset() int {
	return determineCorrectOffset(c.LgK, c.NumCoupons)
}

// getFormat reconstructs the format ordinal from which streams are present
// and whether HIP is live. Bit 2 (4) marks a valid window stream, bit 1 (2)
// marks a valid csv stream, bit 0 (1) marks HIP (the complement of merged).
func (c *CpcCompressedState) getFormat() CpcFormat {
	ordinal := 0
	if c.WindowIsValid {
		ordinal |= 4
	}
	if c.CsvIsValid {
		ordinal |= 2
	}
	if !c.MergeFlag {
		ordinal |= 1
	}
	return CpcFormat(ordinal)
}

// NewCpcCompressedStateFromSketch stages every field and compressed stream
// a live sketch needs to be written to memory. The csv (surprising-value)
// stream and window stream are each Golomb-Rice compressed independently,
// the csv stream against its sorted pairTable entries and the window
// stream byte by byte against slidingWindow.
func NewCpcCompressedStateFromSketch(sk *CpcSketch) (*CpcCompressedState, error) {
	seedHash, err := internal.ComputeSeedHash(int64(sk.seed))
	if err != nil {
		return nil, err
	}
	state := NewCpcCompressedState(sk.lgK, seedHash)
	state.FiCol = sk.fiCol
	state.MergeFlag = sk.mergeFlag
	state.NumCoupons = uint64(sk.numCoupons)
	state.Kxp = sk.kxp
	state.HipEstAccum = sk.hipEstAccum

	if sk.numCoupons == 0 {
		return state, nil
	}

	if sk.slidingWindow != nil {
		k := 1 << sk.lgK
		maxWords := k + 16
		scratch := make([]int, maxWords)
		table := pickByteCodingTable(sk.slidingWindow)
		n := lowLevelCompressBytes(sk.slidingWindow, k, table, scratch)
		state.WindowIsValid = true
		state.CwLengthInts = n
		state.CwStream = scratch[:n]
	}

	if sk.pairTable != nil && sk.pairTable.numPairs > 0 {
		pairs := sk.pairTable.sortedPairs()
		maxWords := len(pairs)*4 + 16
		scratch := make([]int, maxWords)
		bb := pickNumBaseBits(sk.lgK, len(pairs))
		n := lowLevelCompressPairs(pairs, len(pairs), bb, scratch)
		state.CsvIsValid = true
		state.NumCsv = uint64(len(pairs))
		state.CsvLengthInts = n
		state.CsvStream = scratch[:n]
	}

	return state, nil
}

// pickNumBaseBits chooses the Golomb parameter that keeps the mean
// quotient near 1, matching the standard heuristic for the coupon's row
// value range of a k-row, numPairs-pair sparse table.
func pickNumBaseBits(lgK, numPairs int) int {
	if numPairs <= 1 {
		return 0
	}
	k := 1 << lgK
	totalRange := k << 6
	mean := totalRange / numPairs
	bb := 0
	for (1 << uint(bb+1)) <= mean {
		bb++
	}
	return bb
}

// pickByteCodingTable always returns a mid-range table; window bytes are
// never close enough to 0/255 saturation in practice (the sketch promotes
// out of PINNED/SLIDING once the window would be nearly full or empty) to
// need the length-limited low-entropy table.
func pickByteCodingTable(_ []byte) byteCodingTable {
	return encodingTablesForHighEntropyByte[0]
}

// csvNumBaseBits recomputes the Golomb parameter pickNumBaseBits chose at
// compress time. It isn't stored in the wire image; LgK and NumCsv (both
// already in the preamble) are enough to derive it deterministically.
func (c *CpcCompressedState) csvNumBaseBits() int {
	return pickNumBaseBits(c.LgK, int(c.NumCsv))
}

// exportToMemory writes the staged fields and compressed streams into a
// freshly allocated byte slice sized exactly to getRequiredSerializedBytes.
func (c *CpcCompressedState) exportToMemory() ([]byte, error) {
	format := c.getFormat()
	mem := make([]byte, c.getRequiredSerializedBytes())

	switch format {
	case CpcFormatEmptyMerged:
		return mem, putEmptyMerged(mem, c.LgK, c.SeedHash)
	case CpcFormatEmptyHip:
		return mem, putEmptyHip(mem, c.LgK, c.SeedHash)
	case CpcFormatSparseHybridMerged:
		return mem, putSparseHybridMerged(mem, c.LgK, int(c.NumCoupons), c.CsvLengthInts, c.SeedHash, c.CsvStream)
	case CpcFormatSparseHybridHip:
		return mem, putSparseHybridHip(mem, c.LgK, int(c.NumCoupons), c.CsvLengthInts, c.Kxp, c.HipEstAccum, c.SeedHash, c.CsvStream)
	case CpcFormatPinnedSlidingMergedNosv:
		return mem, putPinnedSlidingMergedNoSv(mem, c.LgK, c.FiCol, int(c.NumCoupons), c.CwLengthInts, c.SeedHash, c.CwStream)
	case CpcFormatPinnedSlidingHipNosv:
		return mem, putPinnedSlidingHipNoSv(mem, c.LgK, c.FiCol, int(c.NumCoupons), c.CwLengthInts, c.Kxp, c.HipEstAccum, c.SeedHash, c.CwStream)
	case CpcFormatPinnedSlidingMerged:
		return mem, putPinnedSlidingMerged(mem, c.LgK, c.FiCol, int(c.NumCoupons), int(c.NumCsv), c.CsvLengthInts, c.CwLengthInts, c.SeedHash, c.CsvStream, c.CwStream)
	case CpcFormatPinnedSlidingHip:
		return mem, putPinnedSlidingHip(mem, c.LgK, c.FiCol, int(c.NumCoupons), int(c.NumCsv), c.Kxp, c.HipEstAccum, c.CsvLengthInts, c.CwLengthInts, c.SeedHash, c.CsvStream, c.CwStream)
	}
	return nil, fmt.Errorf("unrecognized format %v", format)
}

// uncompress decompresses this state's csv/window streams back into a
// fresh pairTable/slidingWindow on dst, which the caller must have already
// created with the matching lgK and seed.
func (c *CpcCompressedState) uncompress(dst *CpcSketch) error {
	dst.numCoupons = int64(c.NumCoupons)
	dst.fiCol = c.FiCol
	dst.mergeFlag = c.MergeFlag
	dst.windowOffset = c.getWindowOffset()
	dst.slidingWindow = nil
	dst.pairTable = nil
	if !c.MergeFlag {
		dst.kxp = c.Kxp
		dst.hipEstAccum = c.HipEstAccum
	}

	if c.WindowIsValid {
		k := 1 << c.LgK
		window := make([]byte, k)
		table := pickByteCodingTable(nil)
		if err := lowLevelUncompressBytes(window, k, table, c.CwStream, c.CwLengthInts); err != nil {
			return fmt.Errorf("uncompressing window stream: %w", err)
		}
		dst.slidingWindow = window
	}

	if c.CsvIsValid {
		numPairs := int(c.NumCsv)
		pairs := make([]int, numPairs)
		bb := c.csvNumBaseBits()
		if err := lowLevelUncompressPairs(pairs, numPairs, bb, c.CsvStream, c.CsvLengthInts); err != nil {
			return fmt.Errorf("uncompressing csv stream: %w", err)
		}
		table, err := NewPairTable(2, 6+c.LgK)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			table.mustInsert(p)
		}
		dst.pairTable = table
	}
	return nil
}

// uncompressSketch builds a new sketch from a compressed state and the
// update seed the caller expects it to carry; the state's own SeedHash is
// only meaningful for validating that seed against the image it came from.
func uncompressSketch(state *CpcCompressedState, seed uint64) (*CpcSketch, error) {
	seedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return nil, err
	}
	if seedHash != state.SeedHash {
		return nil, fmt.Errorf("seed hash mismatch: image has %d, expected %d", state.SeedHash, seedHash)
	}
	sketch, err := NewCpcSketch(state.LgK, seed)
	if err != nil {
		return nil, err
	}
	if err := state.uncompress(sketch); err != nil {
		return nil, err
	}
	return sketch, nil
}

func importFromMemory(bytes []byte) (*CpcCompressedState, error) {
	if err := checkLoPreamble(bytes); err != nil {
		return nil, err
	}
	if !isCompressed(bytes) {
		return nil, fmt.Errorf("not compressed")
	}
	lgK := getLgK(bytes)
	seedHash := getSeedHash(bytes)
	state := NewCpcCompressedState(lgK, seedHash)
	fmtOrd := getFormatOrdinal(bytes)
	format := CpcFormat(fmtOrd)
	state.MergeFlag = (fmtOrd & 1) == 0
	state.CsvIsValid = (fmtOrd & 2) > 0
	state.WindowIsValid = (fmtOrd & 4) > 0

	if getPreInts(bytes) != getDefinedPreInts(format) {
		return nil, fmt.Errorf("preInts %d does not match format %s", getPreInts(bytes), format.String())
	}

	switch format {
	case CpcFormatEmptyMerged, CpcFormatEmptyHip:
		if err := checkCapacity(len(bytes), 8); err != nil {
			return nil, err
		}
	case CpcFormatSparseHybridMerged:
		state.NumCoupons = getNumCoupons(bytes)
		state.NumCsv = state.NumCoupons
		state.CsvLengthInts = getSvLengthInts(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CsvStream = getSvStream(bytes)
	case CpcFormatSparseHybridHip:
		state.NumCoupons = getNumCoupons(bytes)
		state.NumCsv = state.NumCoupons
		state.CsvLengthInts = getSvLengthInts(bytes)
		state.Kxp = getKxP(bytes)
		state.HipEstAccum = getHipAccum(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CsvStream = getSvStream(bytes)
	case CpcFormatPinnedSlidingMergedNosv:
		state.FiCol = getFiCol(bytes)
		state.NumCoupons = getNumCoupons(bytes)
		state.CwLengthInts = getWLengthInts(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CwStream = getWStream(bytes)
	case CpcFormatPinnedSlidingHipNosv:
		state.FiCol = getFiCol(bytes)
		state.NumCoupons = getNumCoupons(bytes)
		state.CwLengthInts = getWLengthInts(bytes)
		state.Kxp = getKxP(bytes)
		state.HipEstAccum = getHipAccum(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CwStream = getWStream(bytes)
	case CpcFormatPinnedSlidingMerged:
		state.FiCol = getFiCol(bytes)
		state.NumCoupons = getNumCoupons(bytes)
		state.NumCsv = getNumSV(bytes)
		state.CsvLengthInts = getSvLengthInts(bytes)
		state.CwLengthInts = getWLengthInts(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CwStream = getWStream(bytes)
		state.CsvStream = getSvStream(bytes)
	case CpcFormatPinnedSlidingHip:
		state.FiCol = getFiCol(bytes)
		state.NumCoupons = getNumCoupons(bytes)
		state.NumCsv = getNumSV(bytes)
		state.CsvLengthInts = getSvLengthInts(bytes)
		state.CwLengthInts = getWLengthInts(bytes)
		state.Kxp = getKxP(bytes)
		state.HipEstAccum = getHipAccum(bytes)
		if err := checkCapacity(len(bytes), state.getRequiredSerializedBytes()); err != nil {
			return nil, err
		}
		state.CwStream = getWStream(bytes)
		state.CsvStream = getSvStream(bytes)
	default:
		return nil, fmt.Errorf("unrecognized format ordinal %d", fmtOrd)
	}
	return state, nil
}

func getDefinedPreInts(format CpcFormat) int {
	return int(preIntsDefs[format])
}
