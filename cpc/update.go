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
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/twmb/murmur3"
)

// invPow2Tab[i] == 2^(-i). Shared with the compression codec's Golomb
// parameter search and the HIP running-sum update.
var invPow2Tab = func() [65]float64 {
	var t [65]float64
	for i := range t {
		t[i] = math.Ldexp(1.0, -i)
	}
	return t
}()

// UpdateUint64 presents v to the sketch as a 64-bit unsigned datum.
func (c *CpcSketch) UpdateUint64(v uint64) error {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	return c.updateBytes(scratch[:])
}

// UpdateInt64 presents v to the sketch; equal bit patterns (after sign
// extension) hash identically regardless of the narrower signed type the
// caller originally held.
func (c *CpcSketch) UpdateInt64(v int64) error {
	return c.UpdateUint64(uint64(v))
}

// UpdateFloat64 canonicalizes -0.0 to +0.0 before hashing so that the two
// compare as the same item, matching IEEE-754 equality semantics.
func (c *CpcSketch) UpdateFloat64(v float64) error {
	if v == 0 {
		v = 0
	}
	return c.UpdateUint64(math.Float64bits(v))
}

// UpdateString presents the UTF-8 bytes of s to the sketch. The empty
// string is a no-op, matching the Java reference behavior.
func (c *CpcSketch) UpdateString(s string) error {
	if len(s) == 0 {
		return nil
	}
	return c.updateBytes([]byte(s))
}

// UpdateByteSlice presents an arbitrary byte slice to the sketch.
func (c *CpcSketch) UpdateByteSlice(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return c.updateBytes(b)
}

// UpdateInt32Slice presents a slice of int32 to the sketch as its
// little-endian byte representation.
func (c *CpcSketch) UpdateInt32Slice(arr []int32) error {
	if len(arr) == 0 {
		return nil
	}
	scratch := make([]byte, 4*len(arr))
	for i, v := range arr {
		binary.LittleEndian.PutUint32(scratch[4*i:], uint32(v))
	}
	return c.updateBytes(scratch)
}

// UpdateInt64Slice presents a slice of int64 to the sketch as its
// little-endian byte representation.
func (c *CpcSketch) UpdateInt64Slice(arr []int64) error {
	if len(arr) == 0 {
		return nil
	}
	scratch := make([]byte, 8*len(arr))
	for i, v := range arr {
		binary.LittleEndian.PutUint64(scratch[8*i:], uint64(v))
	}
	return c.updateBytes(scratch)
}

func (c *CpcSketch) updateBytes(b []byte) error {
	hash0, hash1 := murmur3.SeedSum128(c.seed, c.seed, b)
	return c.hashUpdate(hash0, hash1)
}

// hashUpdate derives the (row, col) coupon from a 128-bit hash pair and
// applies it. row takes the low lgK bits of hash0; col is the (saturating)
// leading-zero count of hash1.
func (c *CpcSketch) hashUpdate(hash0, hash1 uint64) error {
	col := bits.LeadingZeros64(hash1)
	if col > 63 {
		col = 63
	}
	kMask := (uint64(1) << uint(c.lgK)) - 1
	row := int(hash0 & kMask)
	return c.rowColUpdate((row << 6) | col)
}

// rowColUpdate applies one coupon to the sketch: ignore if it is below the
// window, fold into the sliding window if it falls inside it, otherwise
// record it as a surprising value. Every successful insertion may trigger
// at most the flavor/window-offset transitions needed to restore the
// invariant (promotion loops internally until settled).
func (c *CpcSketch) rowColUpdate(rowCol int) error {
	col := rowCol & 63
	if col < c.windowOffset {
		return nil // already evicted from the window; contributes nothing
	}
	if c.slidingWindow != nil && col < c.windowOffset+8 {
		return c.updateWindowBit(rowCol)
	}
	return c.updateSurprisingValue(rowCol)
}

func (c *CpcSketch) updateWindowBit(rowCol int) error {
	row := rowCol >> 6
	col := rowCol & 63
	bit := byte(1) << uint(col-c.windowOffset)
	old := c.slidingWindow[row]
	if old&bit != 0 {
		return nil // already set
	}
	c.slidingWindow[row] = old | bit
	c.numCoupons++
	c.updateHIP(col)
	return c.settleFlavorTransitions()
}

func (c *CpcSketch) updateSurprisingValue(rowCol int) error {
	if c.pairTable == nil {
		table, err := NewPairTable(2, 6+c.lgK)
		if err != nil {
			return err
		}
		c.pairTable = table
	}
	isNovel, err := c.pairTable.maybeInsert(rowCol)
	if err != nil {
		return err
	}
	if !isNovel {
		return nil
	}
	c.numCoupons++
	c.updateHIP(rowCol & 63)
	return c.settleFlavorTransitions()
}

// updateHIP maintains the running HIP estimate and its kxp accumulator.
// kxp is the sum, over every (row, column) pair not yet seen, of
// 2^-(column+1); a freshly-inserted coupon at the given column removes
// exactly one such term, regardless of which row it belongs to.
func (c *CpcSketch) updateHIP(col int) {
	k := float64(int64(1) << c.lgK)
	c.hipEstAccum += k / c.kxp
	c.kxp -= invPow2Tab[col+1]
}

// settleFlavorTransitions brings the sketch's representation in line with
// its flavor after numCoupons has grown: allocate the sliding window on
// HYBRID->PINNED, then advance windowOffset (evicting bits below it into
// the surprising-value table) until it matches determineCorrectOffset.
func (c *CpcSketch) settleFlavorTransitions() error {
	if c.getFlavor() >= CpcFlavorPinned && c.slidingWindow == nil {
		if err := c.promoteToWindowed(); err != nil {
			return err
		}
	}
	if c.slidingWindow == nil {
		return nil
	}
	target := determineCorrectOffset(c.lgK, uint64(c.numCoupons))
	for c.windowOffset < target {
		if err := c.advanceWindowOffset(); err != nil {
			return err
		}
	}
	return nil
}

// promoteToWindowed allocates the k-byte sliding window at offset 0 and
// moves every table entry with col < 8 into it, dropping it from the table.
func (c *CpcSketch) promoteToWindowed() error {
	k := 1 << c.lgK
	window := make([]byte, k)
	if c.pairTable != nil {
		slots := c.pairTable.slotsArr
		numSlots := 1 << c.pairTable.lgSizeInts
		moved := make([]int, 0)
		for i := 0; i < numSlots; i++ {
			rowCol := slots[i]
			if rowCol == -1 {
				continue
			}
			if rowCol&63 < 8 {
				moved = append(moved, rowCol)
			}
		}
		for _, rowCol := range moved {
			row := rowCol >> 6
			col := rowCol & 63
			window[row] |= byte(1) << uint(col)
			if _, err := c.pairTable.maybeDelete(rowCol); err != nil {
				return err
			}
		}
	}
	c.slidingWindow = window
	c.windowOffset = 0
	return nil
}

// advanceWindowOffset shifts every window byte right by one column,
// evicting any bit that falls off the bottom into the surprising-value
// table as (row, oldOffset) — the invariant guarantees that column cannot
// already be present there.
func (c *CpcSketch) advanceWindowOffset() error {
	if c.pairTable == nil {
		table, err := NewPairTable(2, 6+c.lgK)
		if err != nil {
			return err
		}
		c.pairTable = table
	}
	oldOffset := c.windowOffset
	k := 1 << c.lgK
	for row := 0; row < k; row++ {
		b := c.slidingWindow[row]
		if b&1 != 0 {
			if err := c.pairTable.forceInsert((row << 6) | oldOffset); err != nil {
				return err
			}
		}
		c.slidingWindow[row] = b >> 1
	}
	c.windowOffset = oldOffset + 1
	return nil
}
