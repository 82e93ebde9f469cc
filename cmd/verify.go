package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/capture"
	"github.com/nabeeladzan/lxfu/internal/detect"
	"github.com/nabeeladzan/lxfu/internal/embed"
	"github.com/nabeeladzan/lxfu/internal/match"
	"github.com/nabeeladzan/lxfu/internal/nameutil"
	"github.com/nabeeladzan/lxfu/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [name]",
	Short: "Verify a face against enrolled profiles",
	Long: `Capture from the camera and score the face against stored profiles.
With a profile name only that profile is considered; without one the best
match across all profiles wins.

The command exits non-zero when no profile clears the threshold, so it can
be used directly in scripts.

Examples:
  # Verify against a single profile
  lxfu verify alice

  # Identify whoever is in front of the camera
  lxfu verify

  # Try a stricter threshold
  lxfu verify alice --threshold 0.95`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Float64("threshold", 0, "Similarity threshold (default from config)")
	verifyCmd.Flags().Bool("full-frame", false, "Skip face detection and match on whole frames")
	verifyCmd.Flags().String("image", "", "Verify an image file instead of the camera")
	verifyCmd.Flags().String("device", "", "Camera device (default from config)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	fullFrame := mustGetBool(cmd, "full-frame")
	imagePath := mustGetString(cmd, "image")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev := mustGetString(cmd, "device"); dev != "" {
		cfg.Device = dev
	}
	threshold := cfg.MatchThreshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		threshold = t
	}
	logger := newLogger()

	st, err := store.Open(cfg.DBPath, store.ReadOnly)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()

	profiles, err := st.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no enrolled profiles, run lxfu enroll first")
	}

	allowAll := len(args) == 0
	target := ""
	if !allowAll {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		resolved, ok := nameutil.Resolve(args[0], names)
		if !ok {
			return fmt.Errorf("no profile named %q", args[0])
		}
		target = resolved
	}

	extractor, err := embed.NewExtractor(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}
	defer extractor.Close()

	// Verification degrades to whole frames when the cascade is missing.
	var detector *detect.Detector
	if !fullFrame {
		if detector, err = detect.New(cfg.CascadePath); err != nil {
			logger.Warn("face detector unavailable, matching on full frames", "err", err)
			detector = nil
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("Look at the camera...")
		res, err := session.Accumulate(ctx, capture.Options{
			Warmup:            cfg.WarmupDelay(),
			CaptureDuration:   cfg.CaptureDuration(),
			FrameInterval:     cfg.FrameInterval(),
			FullFrame:         fullFrame,
			FallbackFullFrame: true,
		})
		if err != nil {
			return err
		}
		if res.Cancelled {
			return fmt.Errorf("verification cancelled")
		}
		if len(res.Faces) == 0 {
			return fmt.Errorf("no frames captured")
		}
		crops = res.Faces
	}

	queries := make([][]float32, 0, len(crops))
	for _, crop := range crops {
		vec, err := extractor.Extract(crop)
		if err != nil {
			logger.Warn("embedding extraction failed, skipping frame", "err", err)
			continue
		}
		queries = append(queries, vec)
	}
	if len(queries) == 0 {
		return fmt.Errorf("no embeddings could be extracted")
	}

	best := match.BestMatch(queries, profiles, target, allowAll)
	if best == nil {
		return fmt.Errorf("no candidate profile to match against")
	}

	if best.AvgSimilarity < threshold {
		return fmt.Errorf("no match: best candidate %s scored %.4f (threshold %.2f)",
			best.Name, best.AvgSimilarity, threshold)
	}
	fmt.Printf("Matched %s (similarity %.4f, peak %.4f)\n", best.Name, best.AvgSimilarity, best.MaxSimilarity)
	return nil
}
