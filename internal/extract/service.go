package extract

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/fingerprint"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/imaging"
)

// Detector computes face detections for one image payload.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*fingerprint.FaceResponse, error)
	Model() string
}

// ImageFailure records one image that could not be processed. The run keeps
// going; failures are reported together at the end.
type ImageFailure struct {
	ImageID string
	Err     error
}

func (f ImageFailure) Error() string {
	return fmt.Sprintf("image %s: %v", f.ImageID, f.Err)
}

func (f ImageFailure) Unwrap() error {
	return f.Err
}

// Summary is the outcome of one extraction run.
type Summary struct {
	ImagesProcessed int
	ImagesSkipped   int
	FacesFound      int
	FacesStored     int
	Failures        []ImageFailure
}

// Options control one extraction run.
type Options struct {
	// Concurrency is the number of images processed in parallel.
	Concurrency int
	// MinScore drops detections below this confidence.
	MinScore float64
	// MaxSize bounds the longest side of the payload sent to the detector.
	// Zero sends originals. Bounding boxes are stored relative to the
	// submitted rendition.
	MaxSize int
	// Force reprocesses images already marked as processed.
	Force bool
	// Progress renders a terminal progress bar.
	Progress bool
}

// Service runs face extraction over a source and persists results.
type Service struct {
	source   Source
	detector Detector
	store    database.FaceWriter
}

// NewService creates an extraction service.
func NewService(source Source, detector Detector, store database.FaceWriter) *Service {
	return &Service{source: source, detector: detector, store: store}
}

// Run processes every image of the source. Per-image errors are collected in
// the summary instead of aborting the run; a non-nil error means the run
// itself could not proceed.
func (s *Service) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	images, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	summary := &Summary{}

	var pending []Image
	for _, img := range images {
		if !opts.Force {
			done, err := s.store.IsImageProcessed(ctx, img.ID)
			if err != nil {
				return nil, fmt.Errorf("checking processed state: %w", err)
			}
			if done {
				summary.ImagesSkipped++
				continue
			}
		}
		pending = append(pending, img)
	}

	if len(pending) == 0 {
		return summary, nil
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(pending),
			progressbar.OptionSetDescription("Detecting faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var mu sync.Mutex
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup

	for _, img := range pending {
		wg.Add(1)
		go func(img Image) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if bar != nil {
					bar.Add(1)
				}
			}()

			found, stored, err := s.processImage(ctx, img, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failures = append(summary.Failures, ImageFailure{ImageID: img.ID, Err: err})
				return
			}
			summary.ImagesProcessed++
			summary.FacesFound += found
			summary.FacesStored += stored
		}(img)
	}

	wg.Wait()
	if bar != nil {
		fmt.Println()
	}
	return summary, nil
}

func (s *Service) processImage(ctx context.Context, img Image, opts Options) (found, stored int, err error) {
	if img.Path == "" {
		return 0, 0, fmt.Errorf("no readable rendition")
	}

	data, err := os.ReadFile(img.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image: %w", err)
	}

	if opts.MaxSize > 0 {
		data, err = imaging.ResizeToFit(data, opts.MaxSize)
		if err != nil {
			return 0, 0, fmt.Errorf("resizing image: %w", err)
		}
	}

	result, err := s.detector.DetectFaces(ctx, data)
	if err != nil {
		return 0, 0, fmt.Errorf("detecting faces: %w", err)
	}

	faces := make([]database.StoredFace, 0, len(result.Faces))
	for _, f := range result.Faces {
		if f.DetScore < opts.MinScore {
			continue
		}
		if len(f.BBox) != 4 {
			continue
		}
		faces = append(faces, database.StoredFace{
			ImageID: img.ID,
			// The service reports [x1, y1, x2, y2]; stored as [x, y, w, h].
			BBox:      []float64{f.BBox[0], f.BBox[1], f.BBox[2] - f.BBox[0], f.BBox[3] - f.BBox[1]},
			Embedding: f.Embedding,
			DetScore:  f.DetScore,
			Model:     result.Model,
			Dim:       f.Dim,
		})
	}

	inserted, err := s.store.InsertFaces(ctx, faces)
	if err != nil {
		return 0, 0, fmt.Errorf("storing faces: %w", err)
	}

	if err := s.store.MarkImageProcessed(ctx, img.ID, len(faces)); err != nil {
		return 0, 0, fmt.Errorf("marking image processed: %w", err)
	}
	return len(faces), inserted, nil
}
