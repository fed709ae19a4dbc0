package modelload

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/driftguard/driftguard/pkg/facemesh"
	"github.com/stretchr/testify/require"
)

type stubLandmarker struct{}

func (s *stubLandmarker) Detect(img *cimg.Image) (*facemesh.Detection, error) {
	return &facemesh.Detection{}, nil
}

func (s *stubLandmarker) Close() {}

func init() {
	// A landmarker that only accepts model files containing "good"
	RegisterLandmarker("stub", func(logger logs.Log, modelFile string) (facemesh.Landmarker, error) {
		raw, err := os.ReadFile(modelFile)
		if err != nil {
			return nil, err
		}
		if string(raw) != "good" {
			return nil, os.ErrInvalid
		}
		return &stubLandmarker{}, nil
	})
}

func failingMirror(t *testing.T, hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
}

func servingMirror(t *testing.T, body string, hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(body))
	}))
}

func TestLoadLandmarkerFallback(t *testing.T) {
	logger := logs.NewTestingLog(t)
	var badHits, goodHits atomic.Int64
	bad := failingMirror(t, &badHits)
	defer bad.Close()
	good := servingMirror(t, "good", &goodHits)
	defer good.Close()

	dir := t.TempDir()
	lm, err := LoadLandmarker(logger, []string{bad.URL, good.URL}, dir, "stub")
	require.NoError(t, err)
	defer lm.Close()
	require.Equal(t, int64(1), badHits.Load())
	require.Equal(t, int64(1), goodHits.Load())

	// Asset is cached: a second load touches no mirror
	lm2, err := LoadLandmarker(logger, []string{bad.URL, good.URL}, dir, "stub")
	require.NoError(t, err)
	defer lm2.Close()
	require.Equal(t, int64(1), badHits.Load())
	require.Equal(t, int64(1), goodHits.Load())
}

func TestLoadLandmarkerRejectedAsset(t *testing.T) {
	logger := logs.NewTestingLog(t)
	var rejectedHits, goodHits atomic.Int64
	// First mirror serves an asset the landmarker rejects
	rejected := servingMirror(t, "corrupt", &rejectedHits)
	defer rejected.Close()
	good := servingMirror(t, "good", &goodHits)
	defer good.Close()

	dir := t.TempDir()
	lm, err := LoadLandmarker(logger, []string{rejected.URL, good.URL}, dir, "stub")
	require.NoError(t, err)
	defer lm.Close()
	require.Equal(t, int64(1), rejectedHits.Load())
	require.Equal(t, int64(1), goodHits.Load())

	// The rejected asset must not be left on disk masquerading as a model
	raw, err := os.ReadFile(filepath.Join(dir, "stub.task"))
	require.NoError(t, err)
	require.Equal(t, "good", string(raw))
}

func TestLoadLandmarkerExhaustion(t *testing.T) {
	logger := logs.NewTestingLog(t)
	var hits atomic.Int64
	bad := failingMirror(t, &hits)
	defer bad.Close()

	_, err := LoadLandmarker(logger, []string{bad.URL, bad.URL}, t.TempDir(), "stub")
	require.Error(t, err)
	require.Equal(t, int64(2), hits.Load())
}

func TestLoadLandmarkerUnknownName(t *testing.T) {
	logger := logs.NewTestingLog(t)
	_, err := LoadLandmarker(logger, nil, t.TempDir(), "no-such-model")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no landmarker registered")
}

func TestLoadCalibration(t *testing.T) {
	logger := logs.NewTestingLog(t)
	var hits atomic.Int64
	mirror := servingMirror(t, `{"yawnMAR": 0.7}`, &hits)
	defer mirror.Close()

	cal, err := LoadCalibration(logger, []string{mirror.URL}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, float32(0.7), cal.YawnMAR)
	require.Greater(t, cal.EyeClosedEAR, float32(0)) // defaults filled in
}

func TestLoadCalibrationExhaustion(t *testing.T) {
	logger := logs.NewTestingLog(t)
	var hits atomic.Int64
	bad := failingMirror(t, &hits)
	defer bad.Close()

	_, err := LoadCalibration(logger, []string{bad.URL}, t.TempDir())
	require.Error(t, err)
}
