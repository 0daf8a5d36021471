package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"SPEAKER_TRACK/go-backend/internal/lipstat"
	"SPEAKER_TRACK/go-backend/internal/models"
)

const (
	frameWidth  = 640
	frameHeight = 480
	fps         = 25
)

var (
	backendURL string
	token      string
	seconds    int

	leftFace  = models.Detection{Box: models.RelativeBoundingBox{XMin: 0.05, YMin: 0.25, Width: 0.3, Height: 0.4}, Label: "left"}
	rightFace = models.Detection{Box: models.RelativeBoundingBox{XMin: 0.6, YMin: 0.25, Width: 0.3, Height: 0.4}, Label: "right"}
)

func call(method, path string, body interface{}, want int, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, backendURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d, body: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// Проверка состояния
func testHealth() error {
	fmt.Println("\n[TEST] Testing /api/health...")
	var health models.HealthStatus
	if err := call(http.MethodGet, "/api/health", nil, http.StatusOK, &health); err != nil {
		return err
	}
	fmt.Printf("✓ Health check: %s, face mesh: %v\n", health.Status, health.FaceMeshService)
	return nil
}

func testCreateSession() (string, error) {
	fmt.Println("\n[TEST] Testing /api/sessions (POST)...")
	var sess models.TrackingSession
	err := call(http.MethodPost, "/api/sessions", models.CreateSessionRequest{
		Source: "test-client",
		Notes:  "Synthetic two-speaker clip",
	}, http.StatusCreated, &sess)
	if err != nil {
		return "", err
	}
	fmt.Printf("✓ Session created: ID=%s\n", sess.ID)
	return sess.ID, nil
}

// mouthRatio oscillates like speech for the talking face and stays nearly
// shut otherwise.
func mouthRatio(talking bool, frame int) float64 {
	if !talking {
		return 0.02
	}
	return 0.15 + 0.12*math.Sin(float64(frame)*2*math.Pi/6)
}

// testStream sends a clip where the left face talks for the first half and
// the right face for the second, so one speaker change is expected.
func testStream(sessionID string) (int, error) {
	fmt.Println("\n[TEST] Streaming synthetic frames...")
	total := seconds * fps
	pixels := make([]byte, frameWidth*frameHeight*3)
	changes := 0

	for i := 0; i < total; i++ {
		leftTalks := i < total/2
		req := models.FrameRequest{
			Frame: &models.VideoFrame{Width: frameWidth, Height: frameHeight, Format: "SRGB", Data: pixels},
			Landmarks: []models.NormalizedLandmarkList{
				lipstat.SyntheticMesh(leftFace.Box, mouthRatio(leftTalks, i), frameWidth, frameHeight),
				lipstat.SyntheticMesh(rightFace.Box, mouthRatio(!leftTalks, i), frameWidth, frameHeight),
			},
			Detections:  []models.Detection{leftFace, rightFace},
			TimestampUs: int64(i) * int64(time.Second/time.Microsecond) / fps,
		}

		var reply models.WindowReply
		if err := call(http.MethodPost, "/api/sessions/"+sessionID+"/frames", req, http.StatusOK, &reply); err != nil {
			return changes, err
		}
		if reply.Flushed && reply.Shot != nil && reply.Shot.Changed {
			changes++
			label := ""
			if len(reply.Outputs) > 0 && len(reply.Outputs[0].Detections) > 0 {
				label = reply.Outputs[0].Detections[0].Label
			}
			fmt.Printf("  - Speaker change at %.3fs (%s face)\n", reply.Shot.Timestamp.Seconds(), label)
		}
	}

	fmt.Printf("✓ Streamed %d frames, %d speaker changes\n", total, changes)
	return changes, nil
}

func testCloseSession(sessionID string) error {
	fmt.Println("\n[TEST] Testing /api/sessions/{id}/close...")
	var reply models.WindowReply
	if err := call(http.MethodPost, "/api/sessions/"+sessionID+"/close", nil, http.StatusOK, &reply); err != nil {
		return err
	}
	fmt.Printf("✓ Session closed, final window flushed: %v\n", reply.Flushed)
	return nil
}

func testHistory(sessionID string) error {
	fmt.Println("\n[TEST] Testing /api/sessions/{id}/shots and /windows...")
	var shots []models.ShotEvent
	if err := call(http.MethodGet, "/api/sessions/"+sessionID+"/shots?changes=true", nil, http.StatusOK, &shots); err != nil {
		return err
	}
	var windows []models.WindowSummary
	if err := call(http.MethodGet, "/api/sessions/"+sessionID+"/windows", nil, http.StatusOK, &windows); err != nil {
		return err
	}
	fmt.Printf("✓ Stored %d speaker changes over %d windows\n", len(shots), len(windows))
	return nil
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "test-client",
		Short:        "Drive the speaker tracking backend with a synthetic two-speaker clip",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	cmd.Flags().StringVar(&backendURL, "url", "http://localhost:8081", "backend base URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("API_TOKEN"), "bearer token, if the backend requires one")
	cmd.Flags().IntVar(&seconds, "seconds", 8, "length of the synthetic clip")
	return cmd
}

func run() error {
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("SPEAKER TRACK - Backend Testing Client")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("\n[INFO] Make sure the Go backend is running on", backendURL)

	if err := testHealth(); err != nil {
		return fmt.Errorf("❌ health check failed: %w", err)
	}

	sessionID, err := testCreateSession()
	if err != nil {
		return fmt.Errorf("❌ session creation failed: %w", err)
	}

	changes, err := testStream(sessionID)
	if err != nil {
		return fmt.Errorf("❌ streaming failed: %w", err)
	}
	if changes < 2 {
		log.Warnf("⚠ Expected the first speaker and one change, got %d change signals", changes)
	}

	if err := testCloseSession(sessionID); err != nil {
		return fmt.Errorf("❌ close failed: %w", err)
	}

	if err := testHistory(sessionID); err != nil {
		log.Warnf("⚠ History unavailable: %v", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println("=" + strings.Repeat("=", 60))
	return nil
}
