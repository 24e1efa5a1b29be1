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
	"fmt"
	"math"
	"strings"

	"github.com/openskx/cpc-go/internal"
)

// Byte/int offsets into the 8-byte low preamble common to every format.
const (
	loFieldPreInts = 0
	loFieldSerVer  = 1
	loFieldFamily  = 2
	loFieldLgK     = 3
	loFieldFiCol   = 4
	loFieldFlags   = 5
	loFieldSeedLo  = 6 // seedHash, 2 bytes LE

	serVer = 1

	// compressedFlagMask is bit 1 of the flags byte; this package only ever
	// emits the compressed formats, so every image it writes carries it.
	compressedFlagMask = 2
)

// Hi-field identifiers, shared between getHiFieldOffset and fieldError.
const (
	hiFieldNumCoupons = 0
	hiFieldNumSv      = 1
	hiFieldKxP        = 2
	hiFieldHipAccum   = 3
	hiFieldCsvStream  = 4
	hiFieldWStream    = 5
)

func checkCapacity(have, need int) error {
	if have < need {
		return fmt.Errorf("insufficient capacity: have %d bytes, need %d", have, need)
	}
	return nil
}

func checkLoPreamble(mem []byte) error {
	return checkCapacity(len(mem), 8)
}

func getPreInts(mem []byte) int {
	return int(mem[loFieldPreInts])
}

func getSerVer(mem []byte) int {
	return int(mem[loFieldSerVer])
}

func getFamilyId(mem []byte) int {
	return int(mem[loFieldFamily])
}

func getLgK(mem []byte) int {
	return int(mem[loFieldLgK])
}

func getFiCol(mem []byte) int {
	return int(mem[loFieldFiCol])
}

func getFlags(mem []byte) int {
	return int(mem[loFieldFlags])
}

func getSeedHash(mem []byte) int16 {
	return int16(binary.LittleEndian.Uint16(mem[loFieldSeedLo : loFieldSeedLo+2]))
}

// getFormat extracts the 3-bit format ordinal packed into flags bits 2..4.
func getFormat(mem []byte) CpcFormat {
	return CpcFormat((getFlags(mem) >> 2) & 0x7)
}

// getFormatOrdinal is the integer twin of getFormat, used where the format
// is decomposed bit by bit (mergeFlag/csvIsValid/windowIsValid) rather than
// switched on.
func getFormatOrdinal(mem []byte) int {
	return int(getFormat(mem))
}

// isCompressed reports whether the compressed-format bit is set. Every
// preamble this package writes sets it; a zero there marks memory this
// package did not produce (or that has been corrupted).
func isCompressed(mem []byte) bool {
	return (getFlags(mem) & compressedFlagMask) != 0
}

// hasHip is true for the odd-numbered formats (1,3,5,7), which carry a
// live kxp/hipEstAccum pair instead of being the result of a merge.
func hasHip(mem []byte) bool {
	return (getFormatOrdinal(mem) & 1) == 1
}

// putLowPreamble writes the 8-byte low preamble common to every format and
// validates that mem is large enough for the full preamble this format
// defines (not just these first 8 bytes).
func putLowPreamble(mem []byte, format CpcFormat, lgK, fiCol int, seedHash int16) error {
	preInts := getDefinedPreInts(format)
	if err := checkCapacity(len(mem), 4*preInts); err != nil {
		return err
	}
	mem[loFieldPreInts] = byte(preInts)
	mem[loFieldSerVer] = byte(serVer)
	mem[loFieldFamily] = byte(internal.FamilyEnum.CPC.Id)
	mem[loFieldLgK] = byte(lgK)
	mem[loFieldFiCol] = byte(fiCol)
	mem[loFieldFlags] = byte((int(format) << 2) | compressedFlagMask)
	binary.LittleEndian.PutUint16(mem[loFieldSeedLo:loFieldSeedLo+2], uint16(seedHash))
	return nil
}

// getHiFieldOffset returns the byte offset of the given extended preamble
// field for the given format, or an error if that format does not carry it.
func getHiFieldOffset(format CpcFormat, hiField int) (int, error) {
	switch hiField {
	case hiFieldNumCoupons:
		switch format {
		case CpcFormatSparseHybridMerged, CpcFormatSparseHybridHip,
			CpcFormatPinnedSlidingMergedNosv, CpcFormatPinnedSlidingHipNosv,
			CpcFormatPinnedSlidingMerged, CpcFormatPinnedSlidingHip:
			return 8, nil
		}
	case hiFieldNumSv:
		switch format {
		case CpcFormatPinnedSlidingMerged, CpcFormatPinnedSlidingHip:
			return 12, nil
		}
	case hiFieldKxP:
		switch format {
		case CpcFormatSparseHybridHip, CpcFormatPinnedSlidingHipNosv:
			return 16, nil
		case CpcFormatPinnedSlidingHip:
			return 24, nil
		}
	case hiFieldHipAccum:
		switch format {
		case CpcFormatSparseHybridHip, CpcFormatPinnedSlidingHipNosv:
			return 24, nil
		case CpcFormatPinnedSlidingHip:
			return 32, nil
		}
	}
	return 0, fieldError(format, hiField)
}

func getNumCoupons(mem []byte) uint64 {
	off, err := getHiFieldOffset(getFormat(mem), hiFieldNumCoupons)
	if err != nil {
		return 0
	}
	return uint64(binary.LittleEndian.Uint32(mem[off : off+4]))
}

func getNumSV(mem []byte) uint64 {
	off, err := getHiFieldOffset(getFormat(mem), hiFieldNumSv)
	if err != nil {
		return 0
	}
	return uint64(binary.LittleEndian.Uint32(mem[off : off+4]))
}

func getKxP(mem []byte) float64 {
	off, err := getHiFieldOffset(getFormat(mem), hiFieldKxP)
	if err != nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(mem[off : off+8]))
}

func getHipAccum(mem []byte) float64 {
	off, err := getHiFieldOffset(getFormat(mem), hiFieldHipAccum)
	if err != nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(mem[off : off+8]))
}

// getSvLengthInts and getWLengthInts don't go through getHiFieldOffset:
// the length fields live at format-specific offsets that don't line up
// with the hiField table (which is about numCoupons/numSv/kxp/hip only).
func getSvLengthInts(mem []byte) int {
	switch getFormat(mem) {
	case CpcFormatSparseHybridMerged, CpcFormatSparseHybridHip:
		return int(binary.LittleEndian.Uint32(mem[12:16]))
	case CpcFormatPinnedSlidingMerged, CpcFormatPinnedSlidingHip:
		return int(binary.LittleEndian.Uint32(mem[16:20]))
	default:
		return 0
	}
}

func getWLengthInts(mem []byte) int {
	switch getFormat(mem) {
	case CpcFormatPinnedSlidingMergedNosv, CpcFormatPinnedSlidingHipNosv:
		return int(binary.LittleEndian.Uint32(mem[12:16]))
	case CpcFormatPinnedSlidingMerged, CpcFormatPinnedSlidingHip:
		return int(binary.LittleEndian.Uint32(mem[20:24]))
	default:
		return 0
	}
}

// getSvStreamOffset validates preInts/format consistency and per-format
// applicability before returning where the csv (surprising-value) stream
// starts. Formats 0,1 (empty) and 4,5 (no-sv window-only) carry no csv
// stream at all.
func getSvStreamOffset(mem []byte) (int, error) {
	if err := checkLoPreamble(mem); err != nil {
		return 0, err
	}
	format := getFormat(mem)
	if getPreInts(mem) != getDefinedPreInts(format) {
		return 0, fieldError(format, hiFieldCsvStream)
	}
	switch format {
	case CpcFormatSparseHybridMerged:
		return 16, nil
	case CpcFormatSparseHybridHip:
		return 32, nil
	case CpcFormatPinnedSlidingMerged:
		return 24 + 4*getWLengthInts(mem), nil
	case CpcFormatPinnedSlidingHip:
		return 40 + 4*getWLengthInts(mem), nil
	default:
		return 0, fieldError(format, hiFieldCsvStream)
	}
}

// getWStreamOffset is the window-stream twin of getSvStreamOffset. Formats
// 0,1 (empty) and 2,3 (sparse/hybrid, no window yet) carry no window
// stream. For formats 6,7 the window stream comes first, so its offset is
// the fixed post-preamble offset, not dependent on the csv length.
func getWStreamOffset(mem []byte) (int, error) {
	if err := checkLoPreamble(mem); err != nil {
		return 0, err
	}
	format := getFormat(mem)
	if getPreInts(mem) != getDefinedPreInts(format) {
		return 0, fieldError(format, hiFieldWStream)
	}
	switch format {
	case CpcFormatPinnedSlidingMergedNosv:
		return 16, nil
	case CpcFormatPinnedSlidingHipNosv:
		return 32, nil
	case CpcFormatPinnedSlidingMerged:
		return 24, nil
	case CpcFormatPinnedSlidingHip:
		return 40, nil
	default:
		return 0, fieldError(format, hiFieldWStream)
	}
}

func getSvStream(mem []byte) []int {
	off, err := getSvStreamOffset(mem)
	if err != nil {
		return nil
	}
	return readIntStream(mem, off, getSvLengthInts(mem))
}

func getWStream(mem []byte) []int {
	off, err := getWStreamOffset(mem)
	if err != nil {
		return nil
	}
	return readIntStream(mem, off, getWLengthInts(mem))
}

func writeIntStream(mem []byte, offset int, stream []int, lengthInts int) {
	for i := 0; i < lengthInts; i++ {
		binary.LittleEndian.PutUint32(mem[offset+4*i:offset+4*i+4], uint32(int32(stream[i])))
	}
}

func readIntStream(mem []byte, offset, lengthInts int) []int {
	out := make([]int, lengthInts)
	for i := 0; i < lengthInts; i++ {
		out[i] = int(int32(binary.LittleEndian.Uint32(mem[offset+4*i : offset+4*i+4])))
	}
	return out
}

func putEmptyMerged(mem []byte, lgK int, seedHash int16) error {
	return putLowPreamble(mem, CpcFormatEmptyMerged, lgK, 0, seedHash)
}

func putEmptyHip(mem []byte, lgK int, seedHash int16) error {
	return putLowPreamble(mem, CpcFormatEmptyHip, lgK, 0, seedHash)
}

func putSparseHybridMerged(mem []byte, lgK, numCoupons, csvLengthInts int, seedHash int16, csvStream []int) error {
	if err := putLowPreamble(mem, CpcFormatSparseHybridMerged, lgK, 0, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(csvLengthInts))
	writeIntStream(mem, 16, csvStream, csvLengthInts)
	return nil
}

func putSparseHybridHip(mem []byte, lgK, numCoupons, csvLengthInts int, kxp, hipAccum float64, seedHash int16, csvStream []int) error {
	if err := putLowPreamble(mem, CpcFormatSparseHybridHip, lgK, 0, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(csvLengthInts))
	binary.LittleEndian.PutUint64(mem[16:24], math.Float64bits(kxp))
	binary.LittleEndian.PutUint64(mem[24:32], math.Float64bits(hipAccum))
	writeIntStream(mem, 32, csvStream, csvLengthInts)
	return nil
}

func putPinnedSlidingMergedNoSv(mem []byte, lgK, fiCol, numCoupons, cwLengthInts int, seedHash int16, cwStream []int) error {
	if err := putLowPreamble(mem, CpcFormatPinnedSlidingMergedNosv, lgK, fiCol, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(cwLengthInts))
	if cwLengthInts <= 0 {
		return fmt.Errorf("cwLengthInts must be > 0, got %d", cwLengthInts)
	}
	writeIntStream(mem, 16, cwStream, cwLengthInts)
	return nil
}

func putPinnedSlidingHipNoSv(mem []byte, lgK, fiCol, numCoupons, cwLengthInts int, kxp, hipAccum float64, seedHash int16, cwStream []int) error {
	if err := putLowPreamble(mem, CpcFormatPinnedSlidingHipNosv, lgK, fiCol, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(cwLengthInts))
	binary.LittleEndian.PutUint64(mem[16:24], math.Float64bits(kxp))
	binary.LittleEndian.PutUint64(mem[24:32], math.Float64bits(hipAccum))
	if cwLengthInts <= 0 {
		return fmt.Errorf("cwLengthInts must be > 0, got %d", cwLengthInts)
	}
	writeIntStream(mem, 32, cwStream, cwLengthInts)
	return nil
}

// putPinnedSlidingMerged writes the low preamble FIRST (establishing the
// compressed flag bit even on later failure), then validates cwLengthInts.
func putPinnedSlidingMerged(mem []byte, lgK, fiCol, numCoupons, numSv, csvLengthInts, cwLengthInts int, seedHash int16, csvStream, cwStream []int) error {
	if err := putLowPreamble(mem, CpcFormatPinnedSlidingMerged, lgK, fiCol, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(numSv))
	binary.LittleEndian.PutUint32(mem[16:20], uint32(csvLengthInts))
	binary.LittleEndian.PutUint32(mem[20:24], uint32(cwLengthInts))
	if cwLengthInts <= 0 {
		return fmt.Errorf("cwLengthInts must be > 0, got %d", cwLengthInts)
	}
	writeIntStream(mem, 24, cwStream, cwLengthInts)
	writeIntStream(mem, 24+4*cwLengthInts, csvStream, csvLengthInts)
	return nil
}

func putPinnedSlidingHip(mem []byte, lgK, fiCol, numCoupons, numSv int, kxp, hipAccum float64, csvLengthInts, cwLengthInts int, seedHash int16, csvStream, cwStream []int) error {
	if err := putLowPreamble(mem, CpcFormatPinnedSlidingHip, lgK, fiCol, seedHash); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(mem[8:12], uint32(numCoupons))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(numSv))
	binary.LittleEndian.PutUint32(mem[16:20], uint32(csvLengthInts))
	binary.LittleEndian.PutUint32(mem[20:24], uint32(cwLengthInts))
	binary.LittleEndian.PutUint64(mem[24:32], math.Float64bits(kxp))
	binary.LittleEndian.PutUint64(mem[32:40], math.Float64bits(hipAccum))
	if cwLengthInts <= 0 {
		return fmt.Errorf("cwLengthInts must be > 0, got %d", cwLengthInts)
	}
	writeIntStream(mem, 40, cwStream, cwLengthInts)
	writeIntStream(mem, 40+4*cwLengthInts, csvStream, csvLengthInts)
	return nil
}

// CpcSketchToString renders the preamble (and, in verbose mode, the stream
// lengths) for diagnostic logging. It never errors on malformed memory: if
// preInts doesn't match what the declared format defines, it reports that
// fact instead of reading the extended fields out of range.
func CpcSketchToString(mem []byte, verbose bool) (string, error) {
	if err := checkLoPreamble(mem); err != nil {
		return "", err
	}
	format := getFormat(mem)
	var sb strings.Builder
	fmt.Fprintf(&sb, "CpcSketch {\n")
	fmt.Fprintf(&sb, "  PreInts    : %d\n", getPreInts(mem))
	fmt.Fprintf(&sb, "  SerVer     : %d\n", getSerVer(mem))
	fmt.Fprintf(&sb, "  FamilyId   : %d\n", getFamilyId(mem))
	fmt.Fprintf(&sb, "  LgK        : %d\n", getLgK(mem))
	fmt.Fprintf(&sb, "  FiCol      : %d\n", getFiCol(mem))
	fmt.Fprintf(&sb, "  Format     : %s\n", format.String())
	fmt.Fprintf(&sb, "  Compressed : %v\n", isCompressed(mem))
	fmt.Fprintf(&sb, "  HasHip     : %v\n", hasHip(mem))
	fmt.Fprintf(&sb, "  SeedHash   : %d\n", getSeedHash(mem))

	if getPreInts(mem) != getDefinedPreInts(format) {
		fmt.Fprintf(&sb, "  <extended fields unavailable: preInts does not match format %s>\n", format.String())
		sb.WriteString("}")
		return sb.String(), nil
	}

	if verbose {
		fmt.Fprintf(&sb, "  NumCoupons : %d\n", getNumCoupons(mem))
		if svLen := getSvLengthInts(mem); svLen > 0 {
			fmt.Fprintf(&sb, "  CsvLength  : %d\n", svLen)
		}
		if wLen := getWLengthInts(mem); wLen > 0 {
			fmt.Fprintf(&sb, "  CwLength   : %d\n", wLen)
		}
		if format == CpcFormatPinnedSlidingMerged || format == CpcFormatPinnedSlidingHip {
			fmt.Fprintf(&sb, "  NumSv      : %d\n", getNumSV(mem))
		}
		if hasHip(mem) {
			fmt.Fprintf(&sb, "  Kxp        : %g\n", getKxP(mem))
			fmt.Fprintf(&sb, "  HipAccum   : %g\n", getHipAccum(mem))
		}
	}
	sb.WriteString("}")
	return sb.String(), nil
}
