package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/doorman/internal/actuator"
	"github.com/andresmejia3/doorman/internal/audit"
	"github.com/andresmejia3/doorman/internal/capture"
	"github.com/andresmejia3/doorman/internal/config"
	"github.com/andresmejia3/doorman/internal/logging"
	"github.com/andresmejia3/doorman/internal/pipeline"
	"github.com/andresmejia3/doorman/internal/recognition"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/andresmejia3/doorman/internal/vision"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the camera and unlock the door for recognized faces",
	Run: func(cmd *cobra.Command, args []string) {
		runEngine(cmd.Context())
	},
}

func init() {
	addStreamFlags(runCmd.Flags())
	runCmd.Flags().StringVarP(&cfg.Unlock.URL, "unlock-url", "u", "", "Door actuator endpoint (POST)")
	runCmd.Flags().DurationVar(&cfg.Unlock.Timeout, "unlock-timeout", cfg.Unlock.Timeout, "Timeout of a single unlock attempt")
	runCmd.Flags().IntVar(&cfg.Unlock.Attempts, "unlock-attempts", cfg.Unlock.Attempts, "Unlock attempts before giving up")
	runCmd.Flags().Float64VarP(&cfg.Decision.Threshold, "threshold", "t", cfg.Decision.Threshold, "Minimum confidence to unlock (exclusive)")
	runCmd.Flags().IntVarP(&cfg.BlockTime, "block-time", "b", cfg.BlockTime, "Seconds to ignore the camera after an unlock")
	rootCmd.AddCommand(runCmd)
}

// addStreamFlags registers the camera, detector and recognition flags shared by run and collect.
func addStreamFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&cfg.Camera.URL, "camera-url", "c", "", "Camera stream URL (rtsp://, http://, ...)")
	fs.StringVar(&cfg.Camera.Backend, "backend", cfg.Camera.Backend, "Capture backend (opencv, ffmpeg)")
	fs.Float64Var(&cfg.Camera.FPS, "fps", cfg.Camera.FPS, "Frames per second handed to the presence filter")
	fs.StringVarP(&cfg.Recognition.URL, "recognition-url", "r", "", "Face recognition endpoint (multipart POST)")
	fs.DurationVar(&cfg.Recognition.Timeout, "recognition-timeout", cfg.Recognition.Timeout, "Recognition request timeout (0 waits forever)")
	fs.IntVar(&cfg.Recognition.Width, "width", cfg.Recognition.Width, "Width of frames sent for recognition")
	fs.IntVar(&cfg.Recognition.Height, "height", cfg.Recognition.Height, "Height of frames sent for recognition")
	fs.StringVar(&cfg.Detector.CascadePath, "cascade", cfg.Detector.CascadePath, "Haar cascade used as the presence filter")
	fs.Float64Var(&cfg.Detector.ScaleFactor, "scale-factor", cfg.Detector.ScaleFactor, "Haar cascade scale factor")
	fs.IntVar(&cfg.Detector.MinNeighbors, "min-neighbors", cfg.Detector.MinNeighbors, "Haar cascade minimum neighbors")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of parallel presence filter workers")
}

// runEngine wires the authorization pipeline and blocks until the context is cancelled.
func runEngine(ctx context.Context) {
	validate(config.ModeEngine)

	gate := pipeline.NewGate(cfg.BlockDuration())
	door := actuator.New(cfg.Unlock.URL, cfg.Unlock.Timeout, cfg.Unlock.Attempts, logging.Component("actuator"))
	recorder := &audit.Recorder{Dir: cfg.LogPath, Events: DB, Log: logging.Component("audit")}
	handler := pipeline.NewAuthorizer(cfg.Decision.Threshold, door, recorder, gate, logging.Component("authorizer"))

	p, closeDetectors := buildPipeline(pipeline.Threshold(cfg.Decision.Threshold), handler)
	defer closeDetectors()
	p.Gate = gate

	fmt.Fprintf(os.Stderr, "🚪 Watching %s with %d workers (threshold %.2f, block %ds)\n",
		cfg.Camera.URL, cfg.Workers, cfg.Decision.Threshold, cfg.BlockTime)

	if err := p.Run(ctx); err != nil {
		utils.Die("Engine stopped", err, nil)
	}
	fmt.Fprintln(os.Stderr, "\n👋 Doorman stopped.")
}

// buildPipeline assembles the stages common to both variants.
// The returned func releases the per-worker cascades.
func buildPipeline(acceptor pipeline.Acceptor, handler pipeline.Handler) (*pipeline.Pipeline, func()) {
	var opener capture.Opener = vision.Camera{}
	if cfg.Camera.Backend == config.BackendFFmpeg {
		opener = capture.FFmpeg{}
	}

	// gocv classifiers are not safe for concurrent use; one per worker
	detectors := make([]pipeline.Detector, 0, cfg.Workers)
	var cascades []*vision.HaarDetector
	closeAll := func() {
		for _, d := range cascades {
			d.Close()
		}
	}
	for i := 0; i < cfg.Workers; i++ {
		d, err := vision.NewHaarDetector(cfg.Detector.CascadePath, cfg.Detector.ScaleFactor, cfg.Detector.MinNeighbors, cfg.Detector.Width)
		if err != nil {
			closeAll()
			utils.Die("Failed to load face cascade", err, nil)
		}
		cascades = append(cascades, d)
		detectors = append(detectors, d)
	}

	p := &pipeline.Pipeline{
		Source:     capture.NewSource(cfg.Camera.URL, opener, logging.Component("capture")),
		Sampler:    pipeline.NewSampler(cfg.Camera.FPS),
		Detectors:  detectors,
		Encoder:    vision.JPEGEncoder{Width: cfg.Recognition.Width, Height: cfg.Recognition.Height},
		Recognizer: recognition.New(cfg.Recognition.URL, cfg.Recognition.Timeout, logging.Component("recognition")),
		Acceptor:   acceptor,
		Handler:    handler,
		Log:        logging.Component("pipeline"),
	}
	return p, closeAll
}
