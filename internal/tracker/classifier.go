package tracker

// SpeakerStrength is the incumbent's lip activity. A face must beat it to be
// classified as speaking.
type SpeakerStrength struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// Summary holds the statistics the classifier decides on.
type Summary struct {
	N         int
	MeanShort float64
	Mean      float64
	Variance  float64
}

// Summarize computes the recent mean over the last meanHistory values (the
// first value when the history is shorter) and the population mean and
// variance over the whole history.
func Summarize(h History, meanHistory int) Summary {
	s := Summary{N: len(h)}
	if s.N == 0 {
		return s
	}

	if s.N < meanHistory || meanHistory <= 0 {
		s.MeanShort = h[0]
	} else {
		for _, v := range h[s.N-meanHistory:] {
			s.MeanShort += v
		}
		s.MeanShort /= float64(meanHistory)
	}

	for _, v := range h {
		s.Mean += v
	}
	s.Mean /= float64(s.N)

	for _, v := range h {
		d := v - s.Mean
		s.Variance += d * d
	}
	s.Variance /= float64(s.N)

	return s
}

type Classifier struct {
	opts Options
}

func NewClassifier(opts Options) Classifier {
	return Classifier{opts: opts}
}

// IsActiveSpeaker decides on one face's history against the incumbent
// strength and returns the strength to carry on. A face qualifies on wide
// mouth opening that beats the incumbent mean, or on small but varying
// opening that beats the incumbent variance.
func (c Classifier) IsActiveSpeaker(h History, incumbent SpeakerStrength) (bool, SpeakerStrength) {
	if len(h) <= c.opts.VarianceHistory/2 {
		return false, incumbent
	}

	s := Summarize(h, c.opts.MeanHistory)

	bigMouth := s.MeanShort >= c.opts.LipMeanThresholdBigMouth &&
		s.Variance >= c.opts.LipVarianceThresholdBigMouth &&
		s.MeanShort > incumbent.Mean
	smallMouth := s.MeanShort >= c.opts.LipMeanThresholdSmallMouth &&
		s.Variance >= c.opts.LipVarianceThresholdSmallMouth &&
		s.Variance > incumbent.Variance

	if bigMouth || smallMouth {
		return true, SpeakerStrength{Mean: s.MeanShort, Variance: s.Variance}
	}
	return false, incumbent
}
