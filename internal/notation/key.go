package notation

import (
	"math"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

// Krumhansl-Kessler key profiles, indexed from the tonic.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// EstimateKey correlates the duration-weighted pitch-class histogram with the
// major and minor profiles in every rotation and returns the best tonic and
// mode. A melody with no pitched notes is reported as C major.
func EstimateKey(melody tintinnabuli.Melody, rhythm tintinnabuli.Rhythm) (string, string) {
	var hist [12]float64
	total := 0.0
	for i, t := range melody {
		p, ok := t.Pitch()
		if !ok {
			continue
		}
		w := 1.0
		if i < len(rhythm) && rhythm[i] > 0 {
			w = rhythm[i]
		}
		hist[p.Class()] += w
		total += w
	}
	if total == 0 {
		return "C", string(tintinnabuli.ModeMajor)
	}

	bestTonic, bestMode, best := 0, tintinnabuli.ModeMajor, math.Inf(-1)
	for tonic := 0; tonic < 12; tonic++ {
		for _, cand := range []struct {
			mode    tintinnabuli.Mode
			profile *[12]float64
		}{
			{tintinnabuli.ModeMajor, &majorProfile},
			{tintinnabuli.ModeMinor, &minorProfile},
		} {
			r := correlate(&hist, cand.profile, tonic)
			if r > best {
				bestTonic, bestMode, best = tonic, cand.mode, r
			}
		}
	}
	return tintinnabuli.PitchClass(bestTonic).String(), string(bestMode)
}

// correlate is the Pearson coefficient between hist and profile rotated so
// that profile[0] sits on tonic.
func correlate(hist, profile *[12]float64, tonic int) float64 {
	var mh, mp float64
	for i := 0; i < 12; i++ {
		mh += hist[i]
		mp += profile[i]
	}
	mh /= 12
	mp /= 12

	var num, dh, dp float64
	for i := 0; i < 12; i++ {
		h := hist[(i+tonic)%12] - mh
		p := profile[i] - mp
		num += h * p
		dh += h * h
		dp += p * p
	}
	if dh == 0 || dp == 0 {
		return 0
	}
	return num / math.Sqrt(dh*dp)
}
