// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"math"
	"time"
)

// Relevance returns importance * exp(-decayRate * ageDays). Age is
// elapsed wall-clock time; a createdAt in the future counts as age 0.
func Relevance(importance, decayRate float64, createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return importance * math.Exp(-decayRate*ageDays)
}
