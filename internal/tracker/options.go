package tracker

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidOptions = errors.New("invalid tracker options")

// Options is the lip-track configuration surface. YAML keys follow the
// option names used by the host graph.
type Options struct {
	// MinSpeakerSpan is the window duration that triggers an evaluation.
	MinSpeakerSpan time.Duration `yaml:"min_speaker_span" json:"min_speaker_span"`
	// VarianceHistory bounds the rolling mouth-ratio history per face.
	VarianceHistory int `yaml:"variance_history" json:"variance_history"`
	// MeanHistory is the short window used for the recent mean.
	MeanHistory int `yaml:"mean_history" json:"mean_history"`

	LipMeanThresholdBigMouth       float64 `yaml:"lip_mean_threshold_big_mouth" json:"lip_mean_threshold_big_mouth"`
	LipVarianceThresholdBigMouth   float64 `yaml:"lip_variance_threshold_big_mouth" json:"lip_variance_threshold_big_mouth"`
	LipMeanThresholdSmallMouth     float64 `yaml:"lip_mean_threshold_small_mouth" json:"lip_mean_threshold_small_mouth"`
	LipVarianceThresholdSmallMouth float64 `yaml:"lip_variance_threshold_small_mouth" json:"lip_variance_threshold_small_mouth"`

	// IOUThreshold is used both for frame-to-frame association and for
	// deciding whether two dominant speakers are the same face.
	IOUThreshold float64 `yaml:"iou_threshold" json:"iou_threshold"`
	// MinShotSpan is the debounce between two signaled speaker changes.
	MinShotSpan time.Duration `yaml:"min_shot_span" json:"min_shot_span"`

	OutputShotBoundary             bool `yaml:"output_shot_boundary" json:"output_shot_boundary"`
	OutputShotBoundaryOnlyOnChange bool `yaml:"output_shot_boundary_only_on_change" json:"output_shot_boundary_only_on_change"`

	// ResetStrengthEachFrame clears the speaker strength ratchet after every
	// processed frame instead of once per window.
	ResetStrengthEachFrame bool `yaml:"reset_strength_each_frame" json:"reset_strength_each_frame"`
}

func DefaultOptions() Options {
	return Options{
		MinSpeakerSpan:                 time.Second,
		VarianceHistory:                10,
		MeanHistory:                    3,
		LipMeanThresholdBigMouth:       0.3,
		LipVarianceThresholdBigMouth:   0.005,
		LipMeanThresholdSmallMouth:     0.05,
		LipVarianceThresholdSmallMouth: 0.001,
		IOUThreshold:                   0.5,
		MinShotSpan:                    2 * time.Second,
		OutputShotBoundary:             true,
	}
}

func (o Options) Validate() error {
	switch {
	case o.MinSpeakerSpan < 0:
		return fmt.Errorf("%w: min_speaker_span must not be negative", ErrInvalidOptions)
	case o.MinShotSpan < 0:
		return fmt.Errorf("%w: min_shot_span must not be negative", ErrInvalidOptions)
	case o.VarianceHistory <= 0:
		return fmt.Errorf("%w: variance_history must be positive", ErrInvalidOptions)
	case o.MeanHistory <= 0:
		return fmt.Errorf("%w: mean_history must be positive", ErrInvalidOptions)
	case o.MeanHistory > o.VarianceHistory:
		return fmt.Errorf("%w: mean_history (%d) exceeds variance_history (%d)", ErrInvalidOptions, o.MeanHistory, o.VarianceHistory)
	case o.IOUThreshold < 0 || o.IOUThreshold > 1:
		return fmt.Errorf("%w: iou_threshold must be within [0,1]", ErrInvalidOptions)
	case o.LipMeanThresholdBigMouth < 0, o.LipVarianceThresholdBigMouth < 0,
		o.LipMeanThresholdSmallMouth < 0, o.LipVarianceThresholdSmallMouth < 0:
		return fmt.Errorf("%w: lip thresholds must not be negative", ErrInvalidOptions)
	}
	return nil
}
