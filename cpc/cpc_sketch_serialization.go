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

// String renders the sketch's preamble fields for debug logging, routing
// through the same compressed-state path used for real serialization so
// the two can never drift out of sync.
func (c *CpcSketch) String() string {
	state, err := NewCpcCompressedStateFromSketch(c)
	if err != nil {
		return fmt.Sprintf("CpcSketch{lgK=%d, error=%v}", c.lgK, err)
	}
	mem, err := state.exportToMemory()
	if err != nil {
		return fmt.Sprintf("CpcSketch{lgK=%d, error=%v}", c.lgK, err)
	}
	str, err := CpcSketchToString(mem, true)
	if err != nil {
		return fmt.Sprintf("CpcSketch{lgK=%d, error=%v}", c.lgK, err)
	}
	return str
}

// ToCompactSlice serializes the sketch to its compressed wire image.
func (c *CpcSketch) ToCompactSlice() ([]byte, error) {
	state, err := NewCpcCompressedStateFromSketch(c)
	if err != nil {
		return nil, err
	}
	return state.exportToMemory()
}

// NewCpcSketchFromSlice deserializes a compressed wire image produced by
// ToCompactSlice, validating it against the given update seed.
func NewCpcSketchFromSlice(bytes []byte, seed uint64) (*CpcSketch, error) {
	state, err := importFromMemory(bytes)
	if err != nil {
		return nil, err
	}
	return uncompressSketch(state, seed)
}

// NewCpcSketchFromSliceWithDefault deserializes using the library's default
// update seed.
func NewCpcSketchFromSliceWithDefault(bytes []byte) (*CpcSketch, error) {
	return NewCpcSketchFromSlice(bytes, internal.DEFAULT_UPDATE_SEED)
}
