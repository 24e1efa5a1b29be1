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

const (
	minLgK    = 4
	maxLgK    = 26
	defaultLgK = 11
)

// CpcSketch is a Compressed Probabilistic Counting sketch: a fixed-memory
// estimator of the number of distinct 128-bit hash pairs it has seen.
//
// Internally it is a hybrid representation of a conceptual k*64 bit matrix,
// one bit per (row, column) coupon. While sparse, every set bit lives in
// pairTable; once the coupon density crosses the PINNED threshold, the low
// 8 columns relative to windowOffset are kept densely in slidingWindow and
// only the remaining "surprising" bits stay in pairTable.
type CpcSketch struct {
	seed uint64

	lgK        int
	numCoupons int64 // count of set bits in the conceptual k*64 matrix
	mergeFlag  bool  // true iff this sketch was produced by the merge engine
	fiCol      int   // first interesting column, a speed hint for compression

	windowOffset  int
	slidingWindow []byte     // nil, or exactly k bytes, one per row
	pairTable     *pairTable // nil, or the surprising-value / sparse coupon set

	// Valid only when mergeFlag is false.
	kxp         float64
	hipEstAccum float64
}

// NewCpcSketch creates an empty sketch with the given lgK and update seed.
func NewCpcSketch(lgK int, seed uint64) (*CpcSketch, error) {
	if err := checkLgK(lgK); err != nil {
		return nil, err
	}
	return &CpcSketch{
		lgK:  lgK,
		seed: seed,
		kxp:  float64(int64(1) << lgK),
	}, nil
}

// NewCpcSketchWithDefault creates an empty sketch using the library's
// default update seed.
func NewCpcSketchWithDefault(lgK int) (*CpcSketch, error) {
	return NewCpcSketch(lgK, internal.DEFAULT_UPDATE_SEED)
}

func (c *CpcSketch) GetLgK() int {
	return c.lgK
}

func (c *CpcSketch) GetFamily() int {
	return internal.FamilyEnum.CPC.Id
}

// getFamily mirrors GetFamily for callers internal to the package that were
// written against the lowercase accessor style used elsewhere in this file.
func (c *CpcSketch) getFamily() int {
	return internal.FamilyEnum.CPC.Id
}

// GetEstimate returns the ICON estimate for merged sketches (whose HIP
// accumulators are not meaningful) and the HIP estimate otherwise.
func (c *CpcSketch) GetEstimate() float64 {
	if c.numCoupons == 0 {
		return 0.0
	}
	if c.mergeFlag {
		return iconEstimate(c.lgK, uint64(c.numCoupons))
	}
	return c.hipEstAccum
}

func (c *CpcSketch) GetLowerBound(kappa int) float64 {
	rtAssert(kappa >= 1 && kappa <= 3)
	if c.mergeFlag {
		return iconConfidenceLB(c.lgK, uint64(c.numCoupons), kappa)
	}
	return hipConfidenceLB(c.lgK, uint64(c.numCoupons), c.hipEstAccum, kappa)
}

func (c *CpcSketch) GetUpperBound(kappa int) float64 {
	rtAssert(kappa >= 1 && kappa <= 3)
	if c.mergeFlag {
		return iconConfidenceUB(c.lgK, uint64(c.numCoupons), kappa)
	}
	return hipConfidenceUB(c.lgK, uint64(c.numCoupons), c.hipEstAccum, kappa)
}

func (c *CpcSketch) getFormat() CpcFormat {
	ordinal := 0
	f := c.getFlavor()
	if f == CpcFlavorHybrid || f == CpcFlavorSparse {
		ordinal = 2
		if !c.mergeFlag {
			ordinal |= 1
		}
	} else {
		ordinal = 0
		if c.slidingWindow != nil {
			ordinal |= 4
		}
		if c.pairTable != nil && c.pairTable.numPairs > 0 {
			ordinal |= 2
		}
		if !c.mergeFlag {
			ordinal |= 1
		}
	}
	return CpcFormat(ordinal)
}

func (c *CpcSketch) getFlavor() CpcFlavor {
	return determineFlavor(c.lgK, uint64(c.numCoupons))
}

func (c *CpcSketch) reset() {
	c.numCoupons = 0
	c.mergeFlag = false
	c.fiCol = 0
	c.windowOffset = 0
	c.slidingWindow = nil
	c.pairTable = nil
	c.kxp = float64(int64(1) << c.lgK)
	c.hipEstAccum = 0
}

// copy returns a deep copy, so a caller can retain a sketch handed to it
// (e.g. by a union) without aliasing the original's mutable buffers.
func (c *CpcSketch) copy() *CpcSketch {
	out := *c
	if c.slidingWindow != nil {
		out.slidingWindow = make([]byte, len(c.slidingWindow))
		copy(out.slidingWindow, c.slidingWindow)
	}
	if c.pairTable != nil {
		out.pairTable = c.pairTable.copy()
	}
	return &out
}

// Copy returns an independent deep copy of the sketch.
func (c *CpcSketch) Copy() (*CpcSketch, error) {
	return c.copy(), nil
}

// refreshKXP recomputes kxp from scratch by scanning the full bit matrix:
// kxp is the sum, over every (row, column) cell that is NOT set, of
// 2^-(column+1). Used after bulk mutation of the matrix (e.g. uncompression)
// where the incremental updateHIP bookkeeping was bypassed.
func (c *CpcSketch) refreshKXP(bitMatrix []uint64) {
	k := 1 << c.lgK
	var sum float64
	for row := 0; row < k; row++ {
		word := bitMatrix[row]
		for col := 0; col < 64; col++ {
			if word&(uint64(1)<<uint(col)) == 0 {
				sum += invPow2Tab[col+1]
			}
		}
	}
	c.kxp = sum
}

// bitMatrixOfSketch materialises the conceptual k*64 bit matrix from the
// sketch's window/table representation. Used by the merge engine and by
// flavor transitions that need to walk every surviving coupon.
func (c *CpcSketch) bitMatrixOfSketch() ([]uint64, error) {
	if c.windowOffset < 0 || c.windowOffset > 56 {
		return nil, fmt.Errorf("window offset out of range: %d", c.windowOffset)
	}
	k := 1 << c.lgK
	matrix := make([]uint64, k)
	if c.slidingWindow != nil {
		for row := 0; row < k; row++ {
			matrix[row] = uint64(c.slidingWindow[row]) << uint(c.windowOffset)
		}
	}
	if c.pairTable != nil {
		slots := c.pairTable.slotsArr
		numSlots := 1 << c.pairTable.lgSizeInts
		for i := 0; i < numSlots; i++ {
			rowCol := slots[i]
			if rowCol == -1 {
				continue
			}
			row := rowCol >> 6
			col := rowCol & 63
			matrix[row] |= uint64(1) << uint(col)
		}
	}
	return matrix, nil
}

// getMaxSerializedBytes returns a conservative upper bound on the size of
// the compressed payload for a sketch of the given lgK, used to size
// scratch buffers. 40 bytes covers the largest (PINNED_SLIDING_HIP)
// preamble. Below the PINNED threshold a sketch can hold up to 3k/2
// coupons while still compressing smaller than its uncompressed window
// would be; at and above it, the window dominates and is bounded by 0.6k
// bytes in the worst (maximally incompressible) case.
func getMaxSerializedBytes(lgK int) (int, error) {
	if err := checkLgK(lgK); err != nil {
		return 0, err
	}
	k := 1 << lgK
	var c int
	if lgK <= 4 {
		c = (3 * k) / 2
	} else {
		c = int(0.6 * float64(k))
	}
	return c + 40, nil
}
