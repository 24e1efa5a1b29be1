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
	"math/bits"

	"github.com/openskx/cpc-go/internal"
)

type CpcUnion struct {
	seed uint64
	lgK  int

	// Note: at most one of bitMatrix and accumulator will be non-nil at any given moment.
	// accumulator is a sketch object that is employed until it graduates out of Sparse mode.
	// At that point, it is converted into a full-sized bitMatrix, which is mathematically a sketch,
	// but doesn't maintain any of the "extra" fields of our sketch objects, so some additional work
	// is required when GetResult is called at the end.
	bitMatrix   []uint64
	accumulator *CpcSketch
}

func NewCpcUnionSketch(lgK int, seed uint64) (CpcUnion, error) {
	acc, err := NewCpcSketch(lgK, seed)
	if err != nil {
		return CpcUnion{}, err
	}
	return CpcUnion{
		seed: seed,
		lgK:  lgK,
		// We begin with the accumulator holding an EMPTY_MERGED sketch object.
		// As an optimization the accumulator could start as nil, but that would require changes elsewhere.
		accumulator: acc,
	}, nil
}

func NewCpcUnionSketchWithDefault(lgK int) (CpcUnion, error) {
	return NewCpcUnionSketch(lgK, uint64(internal.DEFAULT_UPDATE_SEED))
}

func (u *CpcUnion) GetFamilyId() int {
	return internal.FamilyEnum.CPC.Id
}

func (u *CpcUnion) Update(source *CpcSketch) error {
	if source == nil {
		return nil
	}
	if err := checkSeeds(u.seed, source.seed); err != nil {
		return err
	}

	sourceFlavor := source.getFlavor()
	if sourceFlavor == CpcFlavorEmpty {
		return nil
	}

	// Accumulator and bitMatrix must be mutually exclusive,
	// so bitMatrix != nil => accumulator == nil and vice versa.
	if err := u.checkUnionState(); err != nil {
		return err
	}

	if source.lgK < u.lgK {
		if err := u.reduceUnionK(source.lgK); err != nil {
			return err
		}
	}

	// if source is past SPARSE mode, make sure that union is a bitMatrix.
	if sourceFlavor > CpcFlavorSparse && u.accumulator != nil {
		matrix, err := u.accumulator.bitMatrixOfSketch()
		if err != nil {
			return err
		}
		u.bitMatrix = matrix
		u.accumulator = nil
	}

	state := (int(sourceFlavor) - 1) << 1
	if u.bitMatrix != nil {
		state |= 1
	}

	switch state {
	case 0: //A: Sparse, bitMatrix == nil, accumulator valid
		if u.accumulator == nil {
			return fmt.Errorf("union accumulator cannot be nil")
		}
		if u.accumulator.getFlavor() == CpcFlavorEmpty && u.lgK == source.lgK {
			u.accumulator = source.copy()
			break
		}
		if err := walkTableUpdatingSketch(u.accumulator, source.pairTable); err != nil {
			return err
		}
		// if the accumulator has graduated beyond sparse, switch union to a bitMatrix
		if u.accumulator.getFlavor() > CpcFlavorSparse {
			matrix, err := u.accumulator.bitMatrixOfSketch()
			if err != nil {
				return err
			}
			u.bitMatrix = matrix
			u.accumulator = nil
		}
	case 1: //B: Sparse, bitMatrix valid, accumulator == nil
		u.orTableIntoMatrix(source.pairTable)
	case 3, 5:
		//C: Hybrid, bitMatrix valid, accumulator == nil
		//C: Pinned, bitMatrix valid, accumulator == nil
		u.orWindowIntoMatrix(source.slidingWindow, source.windowOffset, source.lgK)
		u.orTableIntoMatrix(source.pairTable)
	case 7: //D: Sliding, bitMatrix valid, accumulator == nil
		// SLIDING mode involves inverted logic, so we can't just walk the source sketch.
		// Instead, we convert it to a bitMatrix that can be OR'ed into the destination.
		sourceMatrix, err := source.bitMatrixOfSketch()
		if err != nil {
			return err
		}
		u.orMatrixIntoMatrix(sourceMatrix, source.lgK)
	default:
		return fmt.Errorf("illegal union state: %d", state)
	}
	return nil
}

func (u *CpcUnion) GetResult() (*CpcSketch, error) {
	if err := u.checkUnionState(); err != nil {
		return nil, err
	}

	if u.accumulator != nil { // start of case where union contains a sketch
		if u.accumulator.numCoupons == 0 {
			result, err := NewCpcSketch(u.lgK, u.accumulator.seed)
			if err != nil {
				return nil, err
			}
			result.mergeFlag = true
			return result, nil
		}
		if u.accumulator.getFlavor() != CpcFlavorSparse {
			return nil, fmt.Errorf("accumulator must be SPARSE")
		}
		result := u.accumulator.copy()
		result.mergeFlag = true
		return result, nil
	} // end of case where union contains a sketch

	// start of case where union contains a bitMatrix
	matrix := u.bitMatrix
	lgK := u.lgK
	result, err := NewCpcSketch(u.lgK, u.seed)
	if err != nil {
		return nil, err
	}

	numCoupons := countBitsSetInMatrix(matrix)
	result.numCoupons = int64(numCoupons)

	flavor := determineFlavor(lgK, numCoupons)
	if flavor <= CpcFlavorSparse {
		return nil, fmt.Errorf("flavor must be greater than SPARSE")
	}

	offset := determineCorrectOffset(lgK, numCoupons)
	result.windowOffset = offset

	//Build the window and pair table
	k := 1 << lgK
	window := make([]byte, k)
	result.slidingWindow = window

	// LgSize = K/16; in some cases this will end up being oversized
	newTableLgSize := max(lgK-4, 2)
	table, err := NewPairTable(newTableLgSize, 6+lgK)
	if err != nil {
		return nil, err
	}
	result.pairTable = table

	// The following works even when the offset is zero.
	maskForClearingWindow := (uint64(0xFF) << uint(offset)) ^ ^uint64(0)
	maskForFlippingEarlyZone := (uint64(1) << uint(offset)) - 1
	allSurprisesORed := uint64(0)

	// Using a sufficiently large hash table avoids the Snow Plow Effect
	for i := 0; i < k; i++ {
		pattern := matrix[i]
		window[i] = byte((pattern >> uint(offset)) & 0xFF)
		pattern &= maskForClearingWindow
		pattern ^= maskForFlippingEarlyZone // This flipping converts surprising 0's to 1's.
		allSurprisesORed |= pattern
		for pattern != 0 {
			col := bits.TrailingZeros64(pattern)
			pattern ^= uint64(1) << uint(col) // erase the 1.
			rowCol := (i << 6) | col
			isNovel, err := table.maybeInsert(rowCol)
			if err != nil {
				return nil, err
			}
			if !isNovel {
				return nil, fmt.Errorf("isNovel must be true")
			}
		}
	}

	// At this point we could shrink an oversize hash table, but the relative waste isn't very big.
	result.fiCol = bits.TrailingZeros64(allSurprisesORed)
	if result.fiCol > offset {
		result.fiCol = offset
	} // corner case

	// NB: the HIP-related fields will contain bogus values, but that is okay.

	result.mergeFlag = true
	return result, nil
	// end of case where union contains a bitMatrix
}

func (u *CpcUnion) checkUnionState() error {
	if u == nil {
		return fmt.Errorf("union cannot be nil")
	}
	if u.accumulator != nil && u.bitMatrix != nil {
		return fmt.Errorf("accumulator and bitMatrix cannot be both valid")
	}
	if u.accumulator == nil && u.bitMatrix == nil {
		return fmt.Errorf("accumulator and bitMatrix cannot be both nil")
	}
	if u.accumulator != nil {
		if u.accumulator.numCoupons > 0 {
			if u.accumulator.slidingWindow != nil || u.accumulator.pairTable == nil {
				return fmt.Errorf("non-empty union accumulator must be SPARSE")
			}
		}
		if u.lgK != u.accumulator.lgK {
			return fmt.Errorf("union LgK must equal accumulator LgK")
		}
	}
	return nil
}

func (u *CpcUnion) reduceUnionK(newLgK int) error {
	if newLgK >= u.lgK {
		return nil
	}
	if u.bitMatrix != nil {
		// downsample the union's bit matrix
		newK := 1 << newLgK
		newMatrix := make([]uint64, newK)
		orMatrixIntoMatrix(newMatrix, newLgK, u.bitMatrix, u.lgK)
		u.bitMatrix = newMatrix
		u.lgK = newLgK
		return nil
	}
	// downsample the union's accumulator
	oldSketch := u.accumulator
	if oldSketch.numCoupons == 0 {
		acc, err := NewCpcSketch(newLgK, oldSketch.seed)
		if err != nil {
			return err
		}
		u.accumulator = acc
		u.lgK = newLgK
		return nil
	}
	newSketch, err := NewCpcSketch(newLgK, oldSketch.seed)
	if err != nil {
		return err
	}
	if err := walkTableUpdatingSketch(newSketch, oldSketch.pairTable); err != nil {
		return err
	}
	if newSketch.getFlavor() == CpcFlavorSparse {
		u.accumulator = newSketch
		u.lgK = newLgK
		return nil
	}
	// the new sketch has graduated beyond sparse, so convert to bitMatrix
	matrix, err := newSketch.bitMatrixOfSketch()
	if err != nil {
		return err
	}
	u.bitMatrix = matrix
	u.accumulator = nil
	u.lgK = newLgK
	return nil
}

func (u *CpcUnion) orWindowIntoMatrix(srcWindow []byte, srcOffset int, srcLgK int) {
	if srcWindow == nil {
		return // HYBRID-flavor sources have no window yet, only a coupon table
	}
	if u.lgK > srcLgK {
		panic("destLgK <= srcLgK")
	}
	destMask := (1 << u.lgK) - 1 // downsamples when destlgK < srcLgK
	srcK := 1 << srcLgK
	for srcRow := 0; srcRow < srcK; srcRow++ {
		u.bitMatrix[srcRow&destMask] |= uint64(srcWindow[srcRow]) << uint(srcOffset)
	}
}

func (u *CpcUnion) orTableIntoMatrix(srcTable *pairTable) {
	if srcTable == nil {
		return
	}
	slots := srcTable.slotsArr
	numSlots := 1 << srcTable.lgSizeInts
	destMask := (1 << u.lgK) - 1 // downsamples when destlgK < srcLgK
	for i := 0; i < numSlots; i++ {
		rowCol := slots[i]
		if rowCol != -1 {
			col := rowCol & 63
			row := rowCol >> 6
			u.bitMatrix[row&destMask] |= uint64(1) << uint(col) // Set the bit.
		}
	}
}

func (u *CpcUnion) orMatrixIntoMatrix(srcMatrix []uint64, srcLgK int) {
	if u.lgK > srcLgK {
		panic("destLgK <= srcLgK")
	}
	destMask := (1 << u.lgK) - 1 // downsamples when destlgK < srcLgK
	srcK := 1 << srcLgK
	for srcRow := 0; srcRow < srcK; srcRow++ {
		u.bitMatrix[srcRow&destMask] |= srcMatrix[srcRow]
	}
}

// orMatrixIntoMatrix ORs a larger (srcLgK) bit matrix down into a smaller
// (destLgK) one, folding rows together modulo the destination's row count.
func orMatrixIntoMatrix(destMatrix []uint64, destLgK int, srcMatrix []uint64, srcLgK int) {
	if destLgK > srcLgK {
		panic("destLgK <= srcLgK")
	}
	destMask := (1 << destLgK) - 1
	srcK := 1 << srcLgK
	for srcRow := 0; srcRow < srcK; srcRow++ {
		destMatrix[srcRow&destMask] |= srcMatrix[srcRow]
	}
}

// GetBitMatrix materializes the union's current state as a k*64 bit matrix,
// whether it is still holding a sparse accumulator or has already graduated.
func (u *CpcUnion) GetBitMatrix() ([]uint64, error) {
	if err := u.checkUnionState(); err != nil {
		return nil, err
	}
	if u.bitMatrix != nil {
		return u.bitMatrix, nil
	}
	return u.accumulator.bitMatrixOfSketch()
}

func (u *CpcUnion) getNumCoupons() uint64 {
	if u.bitMatrix != nil {
		return countBitsSetInMatrix(u.bitMatrix)
	}
	return uint64(u.accumulator.numCoupons)
}

// checkSeeds returns an error if the two update seeds differ; sketches and
// unions built with different seeds hash items incompatibly and must never
// be combined.
func checkSeeds(a, b uint64) error {
	if a != b {
		return fmt.Errorf("seed mismatch: %d != %d", a, b)
	}
	return nil
}

// walkTableUpdatingSketch replays every coupon in srcTable into dest via the
// normal update path, used when folding one sparse accumulator into another.
func walkTableUpdatingSketch(dest *CpcSketch, srcTable *pairTable) error {
	if srcTable == nil {
		return nil
	}
	slots := srcTable.slotsArr
	numSlots := 1 << srcTable.lgSizeInts
	for i := 0; i < numSlots; i++ {
		rowCol := slots[i]
		if rowCol == -1 {
			continue
		}
		if err := dest.rowColUpdate(rowCol); err != nil {
			return err
		}
	}
	return nil
}

// countBitsSetInMatrix returns the total population count across every row
// of a conceptual k*64 bit matrix.
func countBitsSetInMatrix(matrix []uint64) uint64 {
	total := uint64(0)
	for _, row := range matrix {
		total += uint64(bits.OnesCount64(row))
	}
	return total
}
