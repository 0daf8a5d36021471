package models

import (
	"encoding/json"
	"time"
)

// Stream timestamps are time.Duration in Go and integer microseconds on the
// wire, the unit FrameRequest.TimestampUs is read in.

func micros(d time.Duration) int64 {
	return d.Microseconds()
}

func fromMicros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

func (o FrameOutput) MarshalJSON() ([]byte, error) {
	type plain FrameOutput
	return json.Marshal(struct {
		TimestampUs int64 `json:"timestamp_us"`
		plain
	}{micros(o.Timestamp), plain(o)})
}

func (o *FrameOutput) UnmarshalJSON(data []byte) error {
	type plain FrameOutput
	aux := struct {
		TimestampUs int64 `json:"timestamp_us"`
		*plain
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.Timestamp = fromMicros(aux.TimestampUs)
	return nil
}

func (s ShotSignal) MarshalJSON() ([]byte, error) {
	type plain ShotSignal
	return json.Marshal(struct {
		TimestampUs int64 `json:"timestamp_us"`
		plain
	}{micros(s.Timestamp), plain(s)})
}

func (s *ShotSignal) UnmarshalJSON(data []byte) error {
	type plain ShotSignal
	aux := struct {
		TimestampUs int64 `json:"timestamp_us"`
		*plain
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Timestamp = fromMicros(aux.TimestampUs)
	return nil
}

func (s FrameSignal) MarshalJSON() ([]byte, error) {
	type plain FrameSignal
	return json.Marshal(struct {
		TimestampUs int64 `json:"timestamp_us"`
		plain
	}{micros(s.Timestamp), plain(s)})
}

func (s *FrameSignal) UnmarshalJSON(data []byte) error {
	type plain FrameSignal
	aux := struct {
		TimestampUs int64 `json:"timestamp_us"`
		*plain
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Timestamp = fromMicros(aux.TimestampUs)
	return nil
}

func (e ShotEvent) MarshalJSON() ([]byte, error) {
	type plain ShotEvent
	return json.Marshal(struct {
		StreamTSUs int64 `json:"stream_ts_us"`
		plain
	}{micros(e.StreamTS), plain(e)})
}

func (e *ShotEvent) UnmarshalJSON(data []byte) error {
	type plain ShotEvent
	aux := struct {
		StreamTSUs int64 `json:"stream_ts_us"`
		*plain
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.StreamTS = fromMicros(aux.StreamTSUs)
	return nil
}

func (w WindowSummary) MarshalJSON() ([]byte, error) {
	type plain WindowSummary
	return json.Marshal(struct {
		StartTSUs int64 `json:"start_ts_us"`
		EndTSUs   int64 `json:"end_ts_us"`
		plain
	}{micros(w.StartTS), micros(w.EndTS), plain(w)})
}

func (w *WindowSummary) UnmarshalJSON(data []byte) error {
	type plain WindowSummary
	aux := struct {
		StartTSUs int64 `json:"start_ts_us"`
		EndTSUs   int64 `json:"end_ts_us"`
		*plain
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.StartTS = fromMicros(aux.StartTSUs)
	w.EndTS = fromMicros(aux.EndTSUs)
	return nil
}
