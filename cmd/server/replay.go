package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"SPEAKER_TRACK/go-backend/internal/config"
	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/tracker"
)

func replayCmd() *cobra.Command {
	var input, output, optionsFile string
	var onlyChanges bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the tracker offline over a JSON-lines frame capture",
		Long: `Reads one frame request per line (frame, landmarks, detections, timestamp_us)
and writes one JSON line per evaluated window.

Examples:
  speaker-track replay --input capture.jsonl
  speaker-track replay --input capture.jsonl --options tracker.yaml --changes-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.LoadTrackerOptions(optionsFile)
			if err != nil {
				return err
			}

			in, err := os.Open(input)
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			stats, err := replay(in, out, opts, onlyChanges)
			if err != nil {
				return err
			}
			log.Infof("Replayed %d frames into %d windows, %d speaker changes", stats.frames, stats.windows, stats.changes)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "JSON-lines capture to replay")
	cmd.Flags().StringVar(&output, "output", "", "write results here instead of stdout")
	cmd.Flags().StringVar(&optionsFile, "options", "", "tracker options YAML")
	cmd.Flags().BoolVar(&onlyChanges, "changes-only", false, "only write windows that signal a speaker change")
	cmd.MarkFlagRequired("input")
	return cmd
}

type replayStats struct {
	frames  int
	windows int
	changes int
}

func replay(r io.Reader, w io.Writer, opts tracker.Options, onlyChanges bool) (replayStats, error) {
	var stats replayStats

	lt, err := tracker.New(opts)
	if err != nil {
		return stats, err
	}

	enc := json.NewEncoder(w)
	emit := func(res *tracker.WindowResult) error {
		if res == nil {
			return nil
		}
		stats.windows++
		changed := res.Shot != nil && res.Shot.Changed
		if changed {
			stats.changes++
		}
		if onlyChanges && !changed {
			return nil
		}
		return enc.Encode(models.WindowReply{
			SessionID:        "replay",
			Flushed:          true,
			Outputs:          res.Outputs,
			Shot:             res.Shot,
			DominantMetaFace: res.DominantID(),
			MetaFaces:        len(res.MetaFaces),
		})
	}

	scanner := bufio.NewScanner(r)
	// a full face mesh per face makes long lines
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var req models.FrameRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		res, err := lt.Process(req.Frame, req.Landmarks, req.Detections, req.Timestamp())
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.frames++
		if err := emit(res); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}

	res, err := lt.Close()
	if err != nil {
		return stats, err
	}
	return stats, emit(res)
}
