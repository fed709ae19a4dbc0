package www

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/driftguard/driftguard/pkg/facemesh"
	"github.com/driftguard/driftguard/pkg/fatigue"
	"github.com/driftguard/driftguard/pkg/modelload"
	"github.com/driftguard/driftguard/server/pipeline"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type openFaceLandmarker struct{}

func (f *openFaceLandmarker) Detect(img *cimg.Image) (*facemesh.Detection, error) {
	landmarks := make(facemesh.LandmarkSet, facemesh.NumLandmarks)
	eyeX := []float32{0, 0.3, 0.7, 1, 0.7, 0.3}
	eyeYSign := []float32{0, -1, -1, 0, 1, 1}
	for i := 0; i < 6; i++ {
		p := facemesh.Point{X: eyeX[i], Y: 0.5 + eyeYSign[i]*0.3}
		landmarks[facemesh.LeftEyeIndices[i]] = p
		landmarks[facemesh.RightEyeIndices[i]] = p
	}
	return &facemesh.Detection{Faces: []facemesh.Face{{Landmarks: landmarks}}}, nil
}

func (f *openFaceLandmarker) Close() {}

func init() {
	modelload.RegisterLandmarker("www-test", func(logger logs.Log, modelFile string) (facemesh.Landmarker, error) {
		return &openFaceLandmarker{}, nil
	})
}

func startTestServer(t *testing.T) (*httptest.Server, *pipeline.Pipeline) {
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".json") {
			w.Write([]byte("{}"))
		} else {
			w.Write([]byte("model"))
		}
	}))
	t.Cleanup(mirror.Close)

	logger := logs.NewTestingLog(t)
	pipe := pipeline.NewPipeline(logger, pipeline.Options{
		Mirrors:    []string{mirror.URL},
		AssetDir:   t.TempDir(),
		Landmarker: "www-test",
	})
	t.Cleanup(pipe.Destroy)

	pipe.Init()
	select {
	case ev := <-pipe.Events():
		require.Equal(t, pipeline.EventReady, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not become ready")
	}

	server := httptest.NewServer(NewServer(logger, pipe).Handler())
	t.Cleanup(server.Close)
	return server, pipe
}

func jsonDecode(resp *http.Response, value any) error {
	return json.NewDecoder(resp.Body).Decode(value)
}

func TestStatusEndpoint(t *testing.T) {
	server, _ := startTestServer(t)

	resp, err := http.Get(server.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var stats pipeline.StatsSnapshot
	require.NoError(t, jsonDecode(resp, &stats))
	require.Equal(t, "ready", stats.State)
}

func TestResultWebSocket(t *testing.T) {
	server, pipe := startTestServer(t)

	wsUrl := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/results"
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The websocket handler registers its watcher asynchronously with
	// respect to the dial returning, so allow a moment for it
	time.Sleep(50 * time.Millisecond)

	require.True(t, pipe.Process(pipeline.NewFrame(cimg.NewImage(8, 8, cimg.PixelFormatRGB), time.Now(), nil)))
	// Drain the host event too
	select {
	case ev := <-pipe.Events():
		require.Equal(t, pipeline.EventResult, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no result event")
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var result fatigue.Result
	require.NoError(t, conn.ReadJSON(&result))
	require.GreaterOrEqual(t, result.Score, float32(0))
	require.Equal(t, fatigue.LevelAlert, result.Level)
}
