package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fire-go/service/config"
)

type testConfig struct {
	config.IService
	url     string
	retries int
	speech  []string
}

func (c testConfig) GetWebhookURL() string       { return c.url }
func (c testConfig) GetWebhookRetries() int      { return c.retries }
func (c testConfig) GetSpeechCommand() []string { return c.speech }

func newWebhook(url string, retries int) *webhookService {
	svc := NewWebhook(testConfig{IService: config.NewHardCoded(), url: url, retries: retries}).(*webhookService)
	svc.backoff = time.Millisecond
	return svc
}

func TestWebhookPostsAlert(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newWebhook(srv.URL, 3).Notify(context.Background(), Alert{Source: "cam0", Probability: 1, Predictions: []string{"YES"}})
	require.NoError(t, err)
	assert.Equal(t, "cam0", got.Source)
	assert.Equal(t, []string{"YES"}, got.Predictions)
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newWebhook(srv.URL, 3).Notify(context.Background(), Alert{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, newWebhook(srv.URL, 2).Notify(context.Background(), Alert{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	assert.Error(t, newWebhook(srv.URL, 3).Notify(context.Background(), Alert{}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookWithoutURL(t *testing.T) {
	assert.Error(t, newWebhook("", 3).Notify(context.Background(), Alert{}))
}

func TestSpeechRunsConfiguredCommand(t *testing.T) {
	svc := NewSpeech(testConfig{IService: config.NewHardCoded(), speech: []string{"spd-say", "has fire.."}}).(*speechService)

	var ran []string
	svc.run = func(_ context.Context, name string, args ...string) error {
		ran = append([]string{name}, args...)
		return nil
	}

	require.NoError(t, svc.Notify(context.Background(), Alert{}))
	assert.Equal(t, []string{"spd-say", "has fire.."}, ran)
}

func TestSpeechReportsFailure(t *testing.T) {
	svc := NewSpeech(testConfig{IService: config.NewHardCoded(), speech: []string{"spd-say"}}).(*speechService)
	svc.run = func(context.Context, string, ...string) error { return errors.New("not installed") }

	assert.Error(t, svc.Notify(context.Background(), Alert{}))
}

func TestFakeRecordsAlerts(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Notify(context.Background(), Alert{Source: "a"}))
	require.NoError(t, f.Notify(context.Background(), Alert{Source: "b"}))
	assert.Len(t, f.Alerts(), 2)
}
