package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (ffmpeg logs)
// This ensures we don't lose the reason a capture subprocess died.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// CommandWaitDelay bounds how long Wait keeps draining pipes after the process is gone,
// e.g. when a killed ffmpeg left a child holding stderr open.
const CommandWaitDelay = time.Second

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
// The process is killed when ctx is done.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = CommandWaitDelay
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// Die is the unified exit strategy for doorman.
// It prints a formatted error box, dumps subprocess logs if a SafeCommand is provided,
// and flushes the fatal entry to the structured log before exiting.
func Die(context string, err error, s *SafeCommand) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 DOORMAN ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}

	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(os.Stderr, "\nSUBPROCESS LOGS:\n%s\n", s.Stderr.String())
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")

	log.Error().Err(err).Msg(context)
	os.Exit(1)
}

// --- 2. Camera Stream Decoding ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// NewFFmpegCameraCmd creates a live decoder pipe for a camera URL.
// Frames come out as mirrored MJPEG on Stdout so they can be split with SplitJpeg.
func NewFFmpegCameraCmd(ctx context.Context, cameraURL string) *SafeCommand {
	// -fflags nobuffer keeps ffmpeg from queuing stale frames behind a slow reader
	return NewSafeCommand(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-fflags", "nobuffer", "-i", cameraURL,
		"-vf", "hflip", "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// --- 3. Timestamps ---

// TimestampLayout renders local time with its UTC offset at second precision,
// e.g. "2024-03-01 18:22:05+01:00".
const TimestampLayout = "2006-01-02 15:04:05-07:00"

// Timestamp formats t for audit directory and file names.
func Timestamp(t time.Time) string {
	return t.Local().Truncate(time.Second).Format(TimestampLayout)
}
