/*
	Trailmark
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package elevation

import (
	"math"

	"github.com/timelinize/trailmark/activity"
)

// PositiveGain returns the total climb along samples: the sum of
// every rise between adjacent samples. Descents count as zero, and
// so does any pair where either sample is missing. It is zero for
// fewer than two samples.
func PositiveGain(samples []activity.Sample) float64 {
	var gain float64
	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[i+1]
		if !a.Valid || !b.Valid {
			continue
		}
		if d := b.Meters - a.Meters; d > 0 {
			gain += d
		}
	}
	return gain
}

// Stats summarizes a sequence of samples.
type Stats struct {
	Points  int     // total number of samples
	Missing int     // samples that could not be looked up
	Min     float64 // lowest valid sample
	Max     float64 // highest valid sample
	Gain    float64 // as computed by PositiveGain
}

// Coverage is the fraction of samples that are valid.
func (s Stats) Coverage() float64 {
	if s.Points == 0 {
		return 0
	}
	return float64(s.Points-s.Missing) / float64(s.Points)
}

// Summarize computes Stats for samples.
func Summarize(samples []activity.Sample) Stats {
	st := Stats{
		Points: len(samples),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Gain:   PositiveGain(samples),
	}
	for _, s := range samples {
		if !s.Valid {
			st.Missing++
			continue
		}
		st.Min = math.Min(st.Min, s.Meters)
		st.Max = math.Max(st.Max, s.Meters)
	}
	if st.Missing == st.Points {
		st.Min, st.Max = 0, 0
	}
	return st
}
