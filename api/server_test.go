package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct {
	config.IService
	uploads string
}

func (c testConfig) GetUploadsFolder() string { return c.uploads }
func (c testConfig) GetFrameSize() int        { return 8 }

type stubClassifier struct {
	label ensemble.Label
	err   error
}

func (s stubClassifier) Name() string { return "stub" }

func (s stubClassifier) Predict(context.Context, ensemble.Frame) (ensemble.Label, error) {
	return s.label, s.err
}

type failingSource struct{}

func (failingSource) Get(context.Context) (*ensemble.Pool, error) {
	return nil, errors.New("models folder missing")
}

func newTestServer(t *testing.T, pools ensemble.PoolSource) (*Server, string) {
	uploads := t.TempDir()
	return NewServer(testConfig{IService: config.NewHardCoded(), uploads: uploads}, nil, pools), uploads
}

func poolOf(t *testing.T, classifiers ...ensemble.Classifier) ensemble.PoolSource {
	pool, err := ensemble.NewPool(classifiers...)
	require.NoError(t, err)
	return ensemble.Static(pool)
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 10, A: 255})
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(imageField, "fire.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func post(t *testing.T, s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/processimage", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestProcessImageMajority(t *testing.T) {
	s, uploads := newTestServer(t, poolOf(t,
		stubClassifier{label: ensemble.LabelFire},
		stubClassifier{label: ensemble.LabelFire},
		stubClassifier{label: ensemble.LabelNoFire},
		stubClassifier{err: errors.New("broken")},
		stubClassifier{label: ensemble.LabelFire},
	))

	body, ct := pngUpload(t)
	rec := post(t, s, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasFire)
	assert.Equal(t, []string{"YES", "YES", "NO", "YES"}, resp.Predictions)

	saved, err := os.ReadDir(uploads)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 1, stats.Fire)
}

func TestProcessImageTieIsNoFire(t *testing.T) {
	s, _ := newTestServer(t, poolOf(t,
		stubClassifier{label: ensemble.LabelFire},
		stubClassifier{label: ensemble.LabelNoFire},
	))

	body, ct := pngUpload(t)
	rec := post(t, s, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.HasFire)
	assert.Equal(t, []string{"YES", "NO"}, resp.Predictions)
}

func TestProcessImageNoVotes(t *testing.T) {
	s, _ := newTestServer(t, poolOf(t,
		stubClassifier{err: errors.New("a")},
		stubClassifier{err: errors.New("b")},
	))

	body, ct := pngUpload(t)
	rec := post(t, s, body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
	assert.Equal(t, 1, s.Stats().NoVotes)
}

func TestProcessImagePoolUnavailable(t *testing.T) {
	s, _ := newTestServer(t, failingSource{})

	body, ct := pngUpload(t)
	rec := post(t, s, body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProcessImageMissingFile(t *testing.T) {
	s, _ := newTestServer(t, poolOf(t, stubClassifier{}))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	rec := post(t, s, body, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessImageUndecodable(t *testing.T) {
	s, _ := newTestServer(t, poolOf(t, stubClassifier{}))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(imageField, "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rec := post(t, s, body, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, s.Stats().BadImages)
}

func TestHomeAndHealth(t *testing.T) {
	s, _ := newTestServer(t, poolOf(t, stubClassifier{}, stubClassifier{}))
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "processimage")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"classifiers": 2}`, rec.Body.String())
}

type tracingClassifier struct {
	traces chan string
}

func (tracingClassifier) Name() string { return "tracing" }

func (c tracingClassifier) Predict(ctx context.Context, _ ensemble.Frame) (ensemble.Label, error) {
	c.traces <- lgr.TraceID(ctx)
	return ensemble.LabelFire, nil
}

func TestProcessImageIsTraced(t *testing.T) {
	traces := make(chan string, 2)
	s, _ := newTestServer(t, poolOf(t, tracingClassifier{traces: traces}))

	body, ct := pngUpload(t)
	first := post(t, s, body, ct)
	require.Equal(t, http.StatusOK, first.Code)

	body, ct = pngUpload(t)
	second := post(t, s, body, ct)
	require.Equal(t, http.StatusOK, second.Code)

	firstID := first.Header().Get(TraceHeader)
	require.NotEmpty(t, firstID)
	assert.Equal(t, firstID, <-traces)
	assert.Equal(t, second.Header().Get(TraceHeader), <-traces)
	assert.NotEqual(t, firstID, second.Header().Get(TraceHeader))
}
