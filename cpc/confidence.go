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

import "math"

// These tables hold empirically fit relative-error coefficients (x10000) for
// kappa in {1,2,3} and lgK in [4,13], one row per lgK (a trailing lgK=14 row
// is carried for completeness but not indexed). At lgK 14 and above the
// asymptotic constants below are used instead, since at that scale the
// empirical and asymptotic values converge.
//
// The low-side and high-side tables are deliberately distinct: the lower
// confidence bound is computed from the estimator's high-side error data and
// the upper bound from its low-side error data, because LB and UB are not
// symmetric around the point estimate for this sketch family.
var (
	iconErrorConstant = math.Log(2.0)                  // 0.693147180559945286
	hipErrorConstant  = math.Sqrt(math.Log(2.0) / 2.0) // 0.588705011257737332

	iconLowSideData = []int{
		//  1,    2,    3,   kappa
		6037, 5720, 5328, // 4
		6411, 6262, 5682, // 5
		6724, 6403, 6127, // 6
		6665, 6411, 6208, // 7
		6959, 6525, 6427, // 8
		6892, 6665, 6619, // 9
		6792, 6752, 6690, // 10
		6899, 6818, 6708, // 11
		6871, 6845, 6812, // 12
		6909, 6861, 6828, // 13
		6919, 6897, 6842, // 14
	}

	iconHighSideData = []int{
		//  1,    2,    3,   kappa
		8031, 8559, 9309, // 4
		7084, 7959, 8660, // 5
		7141, 7514, 7876, // 6
		7458, 7430, 7572, // 7
		6892, 7141, 7497, // 8
		6889, 7132, 7290, // 9
		7075, 7118, 7185, // 10
		7040, 7047, 7085, // 11
		6993, 7019, 7053, // 12
		6953, 7001, 6983, // 13
		6944, 6966, 7004, // 14
	}

	hipLowSideData = []int{
		5871, 5247, 4826, // 4
		5877, 5403, 5070, // 5
		5873, 5533, 5304, // 6
		5878, 5632, 5464, // 7
		5874, 5690, 5564, // 8
		5880, 5745, 5619, // 9
		5875, 5784, 5701, // 10
		5866, 5789, 5742, // 11
		5869, 5827, 5784, // 12
		5876, 5860, 5827, // 13
		5881, 5853, 5842, // 14
	}

	hipHighSideData = []int{
		5855, 6688, 7391, // 4
		5886, 6444, 6923, // 5
		5885, 6254, 6594, // 6
		5889, 6134, 6326, // 7
		5900, 6072, 6203, // 8
		5875, 6005, 6089, // 9
		5871, 5980, 6040, // 10
		5889, 5941, 6015, // 11
		5871, 5926, 5973, // 12
		5866, 5901, 5915, // 13
		5880, 5914, 5953, // 14
	}
)

func relErrorX(lgK, kappa int, asymptote float64, table []int) float64 {
	x := asymptote
	if lgK < 14 {
		x = float64(table[(3*(lgK-4))+(kappa-1)]) / 10000.0
	}
	return x / math.Sqrt(float64(uint64(1)<<lgK))
}

func iconConfidenceLB(lgK int, numCoupons uint64, kappa int) float64 {
	if numCoupons == 0 {
		return 0.0
	}
	eps := float64(kappa) * relErrorX(lgK, kappa, iconErrorConstant, iconHighSideData)
	est := iconEstimate(lgK, numCoupons)
	result := est / (1.0 + eps)
	if result < float64(numCoupons) {
		result = float64(numCoupons)
	}
	return result
}

func iconConfidenceUB(lgK int, numCoupons uint64, kappa int) float64 {
	if numCoupons == 0 {
		return 0.0
	}
	eps := float64(kappa) * relErrorX(lgK, kappa, iconErrorConstant, iconLowSideData)
	est := iconEstimate(lgK, numCoupons)
	result := est / (1.0 - eps)
	return math.Ceil(result)
}

func hipConfidenceLB(lgK int, numCoupons uint64, hipEstAccum float64, kappa int) float64 {
	if numCoupons == 0 {
		return 0.0
	}
	eps := float64(kappa) * relErrorX(lgK, kappa, hipErrorConstant, hipHighSideData)
	result := hipEstAccum / (1.0 + eps)
	if result < float64(numCoupons) {
		result = float64(numCoupons)
	}
	return result
}

func hipConfidenceUB(lgK int, numCoupons uint64, hipEstAccum float64, kappa int) float64 {
	if numCoupons == 0 {
		return 0.0
	}
	eps := float64(kappa) * relErrorX(lgK, kappa, hipErrorConstant, hipLowSideData)
	result := hipEstAccum / (1.0 - eps)
	return math.Ceil(result)
}
