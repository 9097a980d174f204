package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database/memstore"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/fingerprint"
)

// fakeDetector returns canned detections per image payload size and records
// calls. Detections use [x1, y1, x2, y2] like the embedding service.
type fakeDetector struct {
	detections map[string][]fingerprint.FaceDetection
	err        error
	calls      int
}

func (d *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*fingerprint.FaceResponse, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	faces := d.detections[string(imageData)]
	return &fingerprint.FaceResponse{FacesCount: len(faces), Faces: faces, Model: "buffalo_l"}, nil
}

func (d *fakeDetector) Model() string { return "buffalo_l" }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func detection(score float64) fingerprint.FaceDetection {
	return fingerprint.FaceDetection{
		Dim:       database.EmbeddingDim,
		Embedding: []float32{0.5, 0.5},
		BBox:      []float64{10, 20, 110, 170},
		DetScore:  score,
	}
}

func TestDirSourceList(t *testing.T) {
	root := t.TempDir()
	proxies := t.TempDir()

	writeFile(t, filepath.Join(root, "2024", "beach.jpg"), "jpg-a")
	writeFile(t, filepath.Join(root, "2024", "sunset.heic"), "heic-raw-bytes")
	writeFile(t, filepath.Join(root, "2024", "hike.cr3"), "raw-bytes")
	writeFile(t, filepath.Join(root, "notes.txt"), "not an image")
	writeFile(t, filepath.Join(root, ".hidden", "secret.jpg"), "skipped")
	writeFile(t, filepath.Join(proxies, "2024", "sunset.jpg"), "heic-proxy")

	src := &DirSource{Root: root, HEICProxyDir: proxies, RawProxyDir: proxies}
	images, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	byID := make(map[string]Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d: %v", len(images), images)
	}
	if img := byID["2024/beach.jpg"]; img.Path == "" {
		t.Error("direct JPEG should resolve to itself")
	}
	if img := byID["2024/sunset.heic"]; img.Path != filepath.Join(proxies, "2024", "sunset.jpg") {
		t.Errorf("HEIC proxy path = %q", img.Path)
	}
	if img := byID["2024/hike.cr3"]; img.Path != "" {
		t.Errorf("RAW without proxy should have empty path, got %q", img.Path)
	}
}

func TestDirSourceFlatProxyFallback(t *testing.T) {
	root := t.TempDir()
	proxies := t.TempDir()

	writeFile(t, filepath.Join(root, "trips", "alps.heic"), "heic")
	writeFile(t, filepath.Join(proxies, "alps.jpg"), "proxy")

	src := &DirSource{Root: root, HEICProxyDir: proxies}
	images, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if images[0].Path != filepath.Join(proxies, "alps.jpg") {
		t.Errorf("flat proxy fallback not used, got %q", images[0].Path)
	}
}

func TestRunStoresFaces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "image-a")
	writeFile(t, filepath.Join(root, "b.jpg"), "image-b")

	det := &fakeDetector{detections: map[string][]fingerprint.FaceDetection{
		"image-a": {detection(0.95), detection(0.40)},
		"image-b": {detection(0.80)},
	}}
	store := memstore.New()
	svc := NewService(&DirSource{Root: root}, det, store)

	summary, err := svc.Run(context.Background(), Options{Concurrency: 2, MinScore: 0.5})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ImagesProcessed != 2 {
		t.Errorf("ImagesProcessed = %d, want 2", summary.ImagesProcessed)
	}
	if summary.FacesFound != 2 {
		t.Errorf("FacesFound = %d, want 2 (low-score detection filtered)", summary.FacesFound)
	}
	if summary.FacesStored != 2 {
		t.Errorf("FacesStored = %d, want 2", summary.FacesStored)
	}
	if len(summary.Failures) != 0 {
		t.Errorf("unexpected failures: %v", summary.Failures)
	}

	faces, err := store.ListAllFaces(context.Background())
	if err != nil {
		t.Fatalf("ListAllFaces failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 stored faces, got %d", len(faces))
	}
	// [x1, y1, x2, y2] = [10, 20, 110, 170] becomes [x, y, w, h].
	want := []float64{10, 20, 100, 150}
	for i, v := range faces[0].BBox {
		if v != want[i] {
			t.Errorf("BBox[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestRunSkipsProcessedImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "image-a")

	det := &fakeDetector{detections: map[string][]fingerprint.FaceDetection{
		"image-a": {detection(0.9)},
	}}
	store := memstore.New()
	svc := NewService(&DirSource{Root: root}, det, store)

	if _, err := svc.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	summary, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.ImagesSkipped != 1 || summary.ImagesProcessed != 0 {
		t.Errorf("second run skipped=%d processed=%d, want 1/0", summary.ImagesSkipped, summary.ImagesProcessed)
	}
	if det.calls != 1 {
		t.Errorf("detector called %d times, want 1", det.calls)
	}

	// Force reprocesses but the duplicate insert is a no-op.
	summary, err = svc.Run(context.Background(), Options{Force: true})
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if summary.FacesStored != 0 {
		t.Errorf("forced rerun stored %d faces, want 0", summary.FacesStored)
	}
	count, _ := store.CountFaces(context.Background())
	if count != 1 {
		t.Errorf("expected 1 face after rerun, got %d", count)
	}
}

func TestRunCollectsPerImageFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.jpg"), "image-good")
	writeFile(t, filepath.Join(root, "broken.heic"), "heic")

	det := &fakeDetector{detections: map[string][]fingerprint.FaceDetection{
		"image-good": {detection(0.9)},
	}}
	store := memstore.New()
	svc := NewService(&DirSource{Root: root}, det, store)

	summary, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ImagesProcessed != 1 {
		t.Errorf("ImagesProcessed = %d, want 1", summary.ImagesProcessed)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(summary.Failures))
	}
	if summary.Failures[0].ImageID != "broken.heic" {
		t.Errorf("failure image = %q, want broken.heic", summary.Failures[0].ImageID)
	}
}

func TestRunDetectorErrorDoesNotMarkProcessed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "image-a")

	det := &fakeDetector{err: errors.New("service down")}
	store := memstore.New()
	svc := NewService(&DirSource{Root: root}, det, store)

	summary, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(summary.Failures))
	}

	done, _ := store.IsImageProcessed(context.Background(), "a.jpg")
	if done {
		t.Error("failed image must stay unprocessed for retry")
	}
}
