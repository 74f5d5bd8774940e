package utils

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	// Scan() should skip the first garbage bytes and find the JPEG
	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}

	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// Trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
}

func TestSplitJpegBackToBack(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xBB, 0xBB, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], a) || !bytes.Equal(got[1], b) {
		t.Errorf("Frames split incorrectly: %X", got)
	}
}

func TestNewFFmpegCameraCmd(t *testing.T) {
	cmd := NewFFmpegCameraCmd(context.Background(), "rtsp://cam.local/stream")
	args := strings.Join(cmd.Args, " ")

	for _, want := range []string{"-i rtsp://cam.local/stream", "-vf hflip", "-f image2pipe", "-vcodec mjpeg"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected args to contain %q, got %q", want, args)
		}
	}
	if cmd.Stderr == nil {
		t.Error("Expected stderr buffer to be attached")
	}
	if cmd.WaitDelay != CommandWaitDelay {
		t.Errorf("Expected WaitDelay %v, got %v", CommandWaitDelay, cmd.WaitDelay)
	}
}

func TestSafeCommandKilledOnCancel(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := NewSafeCommand(ctx, "sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected a killed process to report an error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Process still running after cancel")
	}
}

func TestTimestamp(t *testing.T) {
	zone := time.FixedZone("test", 2*60*60)
	orig := time.Local
	time.Local = zone
	defer func() { time.Local = orig }()

	ts := time.Date(2024, 3, 1, 16, 22, 5, 900_000_000, time.UTC)
	if got, want := Timestamp(ts), "2024-03-01 18:22:05+02:00"; got != want {
		t.Errorf("Timestamp() = %q, want %q", got, want)
	}
}
