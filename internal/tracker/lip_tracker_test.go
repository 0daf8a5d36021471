package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SPEAKER_TRACK/go-backend/internal/lipstat"
	"SPEAKER_TRACK/go-backend/internal/models"
)

const (
	frameWidth  = 640
	frameHeight = 480
)

type faceAt struct {
	box   models.Detection
	ratio float64
}

func videoFrame() *models.VideoFrame {
	return &models.VideoFrame{Width: frameWidth, Height: frameHeight, Format: "SRGB", Data: []byte{1, 2, 3}}
}

func scenarioOptions() Options {
	return Options{
		MinSpeakerSpan:                 200 * time.Millisecond,
		VarianceHistory:                4,
		MeanHistory:                    2,
		LipMeanThresholdBigMouth:       0.5,
		LipVarianceThresholdBigMouth:   0.01,
		LipMeanThresholdSmallMouth:     0.05,
		LipVarianceThresholdSmallMouth: 0.001,
		IOUThreshold:                   0.5,
		OutputShotBoundary:             true,
	}
}

func newTracker(t *testing.T, opts Options, options ...Option) *LipTracker {
	t.Helper()
	tr, err := New(opts, options...)
	require.NoError(t, err)
	return tr
}

func step(t *testing.T, tr *LipTracker, ms int, faces ...faceAt) *WindowResult {
	t.Helper()
	var (
		landmarks  []models.NormalizedLandmarkList
		detections []models.Detection
	)
	for _, f := range faces {
		landmarks = append(landmarks, lipstat.SyntheticMesh(f.box.Box, f.ratio, frameWidth, frameHeight))
		detections = append(detections, f.box)
	}
	res, err := tr.Process(videoFrame(), landmarks, detections, time.Duration(ms)*time.Millisecond)
	require.NoError(t, err)
	return res
}

// talkingWindow feeds three frames 100ms apart whose lip ratios rise enough
// to pass the small-mouth criterion on the third frame.
func talkingWindow(t *testing.T, tr *LipTracker, startMs int, box models.Detection) *WindowResult {
	t.Helper()
	require.Nil(t, step(t, tr, startMs, faceAt{box, 0.05}))
	require.Nil(t, step(t, tr, startMs+100, faceAt{box, 0.15}))
	res := step(t, tr, startMs+200, faceAt{box, 0.3})
	require.NotNil(t, res)
	return res
}

func TestSilentFaceHasNoSpeaker(t *testing.T) {
	tr := newTracker(t, scenarioOptions())
	box := det(0.2, 0.2, 0.3, 0.4)

	assert.Nil(t, step(t, tr, 0, faceAt{box, 0.1}))
	assert.Nil(t, step(t, tr, 100, faceAt{box, 0.1}))
	res := step(t, tr, 200, faceAt{box, 0.1})
	require.NotNil(t, res)

	assert.Nil(t, res.Dominant)
	require.Len(t, res.Outputs, 3)
	for _, out := range res.Outputs {
		assert.NotNil(t, out.Detections)
		assert.Empty(t, out.Detections)
	}
	require.NotNil(t, res.Shot)
	assert.False(t, res.Shot.Changed)
	assert.Equal(t, time.Duration(0), res.Shot.Timestamp)
	assert.Zero(t, tr.Buffered())
}

func TestRisingLipsMakeFirstSpeaker(t *testing.T) {
	tr := newTracker(t, scenarioOptions())
	box := det(0.2, 0.2, 0.3, 0.4)

	res := talkingWindow(t, tr, 0, box)

	require.NotNil(t, res.Dominant)
	assert.Equal(t, 0, res.Dominant.ID)
	assert.Equal(t, 1, res.Dominant.Hits)
	require.NotNil(t, res.Shot)
	assert.True(t, res.Shot.Changed)
	assert.Equal(t, time.Duration(0), res.Shot.Timestamp)

	for i, out := range res.Outputs {
		assert.Equal(t, time.Duration(i*100)*time.Millisecond, out.Timestamp)
		assert.Equal(t, []models.Detection{box}, out.Detections)
	}
}

func TestSameFaceAcrossWindowsIsNoChange(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	first := talkingWindow(t, tr, 0, det(0.2, 0.2, 0.3, 0.4))
	require.True(t, first.Shot.Changed)

	second := talkingWindow(t, tr, 300, det(0.22, 0.2, 0.3, 0.4))
	require.NotNil(t, second.Dominant)
	// ids restart every window
	assert.Equal(t, 0, second.Dominant.ID)
	require.NotNil(t, second.Shot)
	assert.False(t, second.Shot.Changed)
	assert.Equal(t, 300*time.Millisecond, second.Shot.Timestamp)
}

func TestMovedFaceAcrossWindowsIsChange(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	talkingWindow(t, tr, 0, det(0.05, 0.2, 0.3, 0.4))
	second := talkingWindow(t, tr, 300, det(0.6, 0.2, 0.3, 0.4))

	require.NotNil(t, second.Shot)
	assert.True(t, second.Changed)
	assert.True(t, second.Shot.Changed)
}

func TestMovedFaceWithinShotSpanIsDebounced(t *testing.T) {
	opts := scenarioOptions()
	opts.MinShotSpan = 2 * time.Second
	tr := newTracker(t, opts)

	talkingWindow(t, tr, 0, det(0.05, 0.2, 0.3, 0.4))
	second := talkingWindow(t, tr, 300, det(0.6, 0.2, 0.3, 0.4))

	assert.True(t, second.Changed)
	require.NotNil(t, second.Shot)
	assert.False(t, second.Shot.Changed)
}

func TestMissingVideoIsRejected(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	_, err := tr.Process(nil, nil, nil, 0)
	assert.True(t, errors.Is(err, ErrMissingVideo))

	_, err = tr.Process(&models.VideoFrame{}, nil, nil, 0)
	assert.True(t, errors.Is(err, ErrMissingVideo))

	assert.Zero(t, tr.Buffered())
}

func TestFirstFrameFixesSize(t *testing.T) {
	tr := newTracker(t, scenarioOptions())
	w, h := tr.FrameSize()
	assert.Equal(t, -1, w)
	assert.Equal(t, -1, h)

	step(t, tr, 0)
	w, h = tr.FrameSize()
	assert.Equal(t, frameWidth, w)
	assert.Equal(t, frameHeight, h)
}

func TestCloseFlushesPartialWindow(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	res, err := tr.Close()
	require.NoError(t, err)
	assert.Nil(t, res)

	box := det(0.2, 0.2, 0.3, 0.4)
	require.Nil(t, step(t, tr, 0, faceAt{box, 0.1}))
	require.Nil(t, step(t, tr, 50, faceAt{box, 0.1}))

	res, err = tr.Close()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Outputs, 2)
	assert.Zero(t, tr.Buffered())
	assert.Equal(t, NoSpeaker, tr.Decision().PreviousID)
}

func TestFramesWithoutFacesKeepTheirSlot(t *testing.T) {
	opts := scenarioOptions()
	opts.MinSpeakerSpan = 400 * time.Millisecond
	tr := newTracker(t, opts)
	box := det(0.2, 0.2, 0.3, 0.4)

	require.Nil(t, step(t, tr, 0))
	require.Nil(t, step(t, tr, 100, faceAt{box, 0.05}))
	require.Nil(t, step(t, tr, 200, faceAt{box, 0.15}))
	require.Nil(t, step(t, tr, 300))
	res := step(t, tr, 400, faceAt{box, 0.3})
	require.NotNil(t, res)

	require.NotNil(t, res.Dominant)
	assert.Equal(t, []int{Absent, 0, 0, Absent, 0}, res.Dominant.Faces)
	require.Len(t, res.Outputs, 5)
	for _, out := range res.Outputs {
		// before the first appearance and in gaps, the nearest known box
		assert.Equal(t, []models.Detection{box}, out.Detections)
	}
	assert.True(t, res.Frames[0].Skipped)
	assert.True(t, res.Frames[3].Skipped)
}

func TestCarriedBoxFollowsLatestAppearance(t *testing.T) {
	opts := scenarioOptions()
	opts.MinSpeakerSpan = 300 * time.Millisecond
	tr := newTracker(t, opts)

	a := det(0.2, 0.2, 0.3, 0.4)
	b := det(0.21, 0.2, 0.3, 0.4)

	require.Nil(t, step(t, tr, 0, faceAt{a, 0.05}))
	require.Nil(t, step(t, tr, 100, faceAt{a, 0.15}))
	require.Nil(t, step(t, tr, 200, faceAt{b, 0.3}))
	res := step(t, tr, 300)
	require.NotNil(t, res)

	assert.Equal(t, []models.Detection{a}, res.Outputs[1].Detections)
	assert.Equal(t, []models.Detection{b}, res.Outputs[2].Detections)
	assert.Equal(t, []models.Detection{b}, res.Outputs[3].Detections)

	prev := tr.Decision().PreviousBox
	require.NotNil(t, prev)
	assert.Equal(t, b, *prev)
}

func TestIdenticalFramesKeepMetaFaceIDs(t *testing.T) {
	opts := scenarioOptions()
	opts.MinSpeakerSpan = 500 * time.Millisecond
	tr := newTracker(t, opts)

	left := det(0.05, 0.2, 0.3, 0.4)
	right := det(0.6, 0.2, 0.3, 0.4)

	var res *WindowResult
	for ms := 0; ms <= 500; ms += 100 {
		res = step(t, tr, ms, faceAt{left, 0.1}, faceAt{right, 0.1})
	}
	require.NotNil(t, res)

	require.Len(t, res.MetaFaces, 2)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, res.MetaFaces[0].Faces)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, res.MetaFaces[1].Faces)
}

func TestLastSpeakingFaceWinsTheFrame(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	quiet := det(0.05, 0.2, 0.3, 0.4)
	loud := det(0.6, 0.2, 0.3, 0.4)

	step(t, tr, 0, faceAt{quiet, 0.05}, faceAt{loud, 0.05})
	step(t, tr, 100, faceAt{quiet, 0.1}, faceAt{loud, 0.2})
	res := step(t, tr, 200, faceAt{quiet, 0.15}, faceAt{loud, 0.4})
	require.NotNil(t, res)

	// both qualify on the last frame; the later and stronger face is kept
	faces := res.Frames[2].Faces
	require.Len(t, faces, 2)
	assert.True(t, faces[0].Speaking)
	assert.True(t, faces[1].Speaking)
	assert.Equal(t, 1, res.Frames[2].Speaker)
	require.NotNil(t, res.Dominant)
	assert.Equal(t, 1, res.Dominant.ID)
}

func TestSkippedLandmarksStayAligned(t *testing.T) {
	tr := newTracker(t, scenarioOptions())

	broken := det(0.05, 0.2, 0.3, 0.4)
	talker := det(0.6, 0.2, 0.3, 0.4)
	short := models.NormalizedLandmarkList{Landmarks: make([]models.NormalizedLandmark, 20)}

	var res *WindowResult
	for i, ratio := range []float64{0.05, 0.15, 0.3} {
		landmarks := []models.NormalizedLandmarkList{
			short,
			lipstat.SyntheticMesh(talker.Box, ratio, frameWidth, frameHeight),
		}
		var err error
		res, err = tr.Process(videoFrame(), landmarks, []models.Detection{broken, talker}, time.Duration(i*100)*time.Millisecond)
		require.NoError(t, err)
	}
	require.NotNil(t, res)

	assert.False(t, res.Frames[2].Faces[0].HasStatistic)
	assert.Empty(t, res.Frames[2].Faces[0].History)
	assert.Len(t, res.Frames[2].Faces[1].History, 3)
	require.NotNil(t, res.Dominant)
	assert.Equal(t, 1, res.Dominant.ID)
}

type countingRenderer struct {
	calls    int
	speakers [][]models.Detection
}

func (r *countingRenderer) Render(frame models.VideoFrame, _ FrameDiagnostics, speakers []models.Detection) (models.VideoFrame, error) {
	r.calls++
	r.speakers = append(r.speakers, speakers)
	out := frame.Clone()
	out.Format = ""
	return out, nil
}

func TestRendererSeesEveryOutputFrame(t *testing.T) {
	r := &countingRenderer{}
	tr := newTracker(t, scenarioOptions(), WithRenderer(r))

	res := talkingWindow(t, tr, 0, det(0.2, 0.2, 0.3, 0.4))

	assert.Equal(t, 3, r.calls)
	for _, out := range res.Outputs {
		require.NotNil(t, out.Rendered)
		assert.Equal(t, "SRGB", out.Rendered.Format)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := scenarioOptions()
	opts.MeanHistory = 10
	_, err := New(opts)
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}
