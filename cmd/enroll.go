package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/capture"
	"github.com/nabeeladzan/lxfu/internal/detect"
	"github.com/nabeeladzan/lxfu/internal/embed"
	"github.com/nabeeladzan/lxfu/internal/store"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name>",
	Short: "Enroll a face profile from the camera",
	Long: `Capture face samples from the camera and store their embeddings
under the given profile name. Running enroll again for the same name
appends more samples, which improves matching under varied lighting.

Enrollment requires a detected face. Use --full-frame to embed whole
frames when no face cascade is available, or --image to enroll from a
photo instead of the camera.

Examples:
  # Enroll from the default camera
  lxfu enroll alice

  # Keep capturing until a face shows up
  lxfu enroll alice --wait

  # Append samples from a photo
  lxfu enroll alice --image ~/alice.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("samples", 3, "Maximum number of samples to store from one capture")
	enrollCmd.Flags().Bool("wait", false, "Keep capturing until a face is found")
	enrollCmd.Flags().Bool("full-frame", false, "Skip face detection and embed whole frames")
	enrollCmd.Flags().String("image", "", "Enroll from an image file instead of the camera")
	enrollCmd.Flags().String("device", "", "Camera device (default from config)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := args[0]
	maxSamples := mustGetInt(cmd, "samples")
	wait := mustGetBool(cmd, "wait")
	fullFrame := mustGetBool(cmd, "full-frame")
	imagePath := mustGetString(cmd, "image")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev := mustGetString(cmd, "device"); dev != "" {
		cfg.Device = dev
	}
	logger := newLogger()

	st, err := store.Open(cfg.DBPath, store.ReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()

	extractor, err := embed.NewExtractor(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}
	defer extractor.Close()

	var detector *detect.Detector
	if !fullFrame {
		detector, err = detect.New(cfg.CascadePath)
		if err != nil {
			return fmt.Errorf("enrollment needs face detection, use --full-frame to skip: %w", err)
		}
	}

	var crops []image.Image
	if imagePath != "" {
		crops, err = facesFromImage(imagePath, detector)
		if err != nil {
			return err
		}
	} else {
		session := &capture.Session{
			Source: cfg.Device,
			Open:   func() (capture.Source, error) { return capture.OpenCamera(cfg.Device) },
			Logger: logger,
		}
		if detector != nil {
			session.Faces = detector
		}
		opts := capture.Options{
			Warmup:          cfg.WarmupDelay(),
			CaptureDuration: cfg.CaptureDuration(),
			FrameInterval:   cfg.FrameInterval(),
			FullFrame:       fullFrame,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("Look at the camera...")
		var res *capture.Result
		if wait {
			res, err = session.RetryUntilFace(ctx, opts)
		} else {
			res, err = session.Accumulate(ctx, opts)
		}
		if err != nil {
			return err
		}
		if res.Cancelled {
			return fmt.Errorf("enrollment cancelled")
		}
		if len(res.Faces) == 0 {
			return fmt.Errorf("no face detected, try --wait or --full-frame")
		}
		crops = res.Faces
	}

	crops = spreadSamples(crops, maxSamples)

	bar := progressbar.Default(int64(len(crops)), "embedding")
	total := 0
	stored := 0
	for _, crop := range crops {
		vec, err := extractor.Extract(crop)
		if err != nil {
			logger.Warn("embedding extraction failed, skipping sample", "err", err)
			bar.Add(1)
			continue
		}
		total, err = st.Store(name, vec)
		if err != nil {
			return fmt.Errorf("failed to store sample for %s: %w", name, err)
		}
		stored++
		bar.Add(1)
	}
	if stored == 0 {
		return fmt.Errorf("no samples could be embedded")
	}

	fmt.Printf("Stored %d sample(s), profile %q now has %d sample(s)\n", stored, name, total)
	return nil
}

// facesFromImage loads a photo and returns the face crop, or the whole
// image when no detector is in play.
func facesFromImage(path string, detector *detect.Detector) ([]image.Image, error) {
	src, err := capture.OpenFile(path)
	if err != nil {
		return nil, err
	}
	frame, err := src.ReadFrame()
	if err != nil {
		return nil, err
	}
	if detector == nil {
		return []image.Image{frame}, nil
	}
	region, ok := detector.Best(frame)
	if !ok {
		return nil, fmt.Errorf("no face found in %s", path)
	}
	return []image.Image{detect.Crop(frame, region)}, nil
}

// spreadSamples picks up to max crops evenly across the capture window.
func spreadSamples(crops []image.Image, max int) []image.Image {
	if max <= 0 || len(crops) <= max {
		return crops
	}
	picked := make([]image.Image, 0, max)
	for i := 0; i < max; i++ {
		picked = append(picked, crops[i*len(crops)/max])
	}
	return picked
}
