package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"sync"

	"github.com/andresmejia3/doorman/internal/utils"
)

const megabyte = 1024 * 1024

// FFmpeg opens cameras by piping them through an ffmpeg subprocess that emits MJPEG.
type FFmpeg struct{}

// Open starts ffmpeg for url. Connection problems surface on the first Read.
// ffmpeg is killed and a pending Read fails once ctx is done.
func (FFmpeg) Open(ctx context.Context, url string) (Stream, error) {
	cmd := utils.NewFFmpegCameraCmd(ctx, url)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	s := &ffmpegStream{cmd: cmd, out: out, scanner: scanner, done: make(chan struct{})}
	go s.watch(ctx)
	return s, nil
}

type ffmpegStream struct {
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner

	done      chan struct{}
	closeOnce sync.Once
}

// watch closes stdout when ctx ends. Killing ffmpeg alone is not enough to
// unblock Read if a child process still holds the pipe.
func (s *ffmpegStream) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.out.Close()
	case <-s.done:
	}
}

func (s *ffmpegStream) Read() (image.Image, error) {
	return decodeNext(s.scanner)
}

// Close kills ffmpeg and reports whatever it printed on stderr.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.out.Close()
	s.cmd.Wait()

	if msg := strings.TrimSpace(s.cmd.Stderr.String()); msg != "" {
		return fmt.Errorf("ffmpeg: %s", msg)
	}
	return nil
}

func decodeNext(scanner *bufio.Scanner) (image.Image, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, io.EOF)
	}
	img, err := jpeg.Decode(bytes.NewReader(scanner.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt jpeg: %v", ErrReadFailed, err)
	}
	return img, nil
}
