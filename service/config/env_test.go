package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestEnvDefaults(t *testing.T) {
	svc := newEnvWithLookup(lookupFrom(nil))

	assert.Equal(t, 10, svc.GetSamplingInterval())
	assert.Equal(t, 3, svc.GetLiveMaxVotes())
	assert.Equal(t, time.Second, svc.GetAlertCooldown())
	assert.Equal(t, "skip", svc.GetModelLoadPolicy())
	assert.Len(t, svc.GetModelFiles(), 5)
	assert.Equal(t, "./settings/decisions.log", svc.GetDecisionsLogFile())
	assert.Equal(t, []string{"spd-say", "has fire.."}, svc.GetSpeechCommand())
}

func TestEnvOverrides(t *testing.T) {
	svc := newEnvWithLookup(lookupFrom(map[string]string{
		"SAMPLING_INTERVAL":  "5",
		"ALERT_COOLDOWN":     "1500ms",
		"CLASSIFIER_TIMEOUT": "0.5",
		"LIVE_DISPLAY":       "false",
		"MODEL_FILES":        "a.onnx, b.onnx,,",
		"SOURCE_URL":         "rtsp://cam/stream",
		"FAKE_LABELS":        "0,1,x",
		"INPUT_FOLDER":       "/data",
		"SPEECH_COMMAND":     "espeak fire",
	}))

	assert.Equal(t, 5, svc.GetSamplingInterval())
	assert.Equal(t, 1500*time.Millisecond, svc.GetAlertCooldown())
	assert.Equal(t, 500*time.Millisecond, svc.GetClassifierTimeout())
	assert.False(t, svc.GetLiveDisplay())
	assert.Equal(t, []string{"a.onnx", "b.onnx"}, svc.GetModelFiles())
	assert.Equal(t, "rtsp://cam/stream", svc.GetSource().URL)
	assert.Equal(t, "cam0", svc.GetSource().ID)
	assert.Equal(t, []int{0, 1, -1}, svc.GetFakeLabels())
	assert.Equal(t, "/data/decisions.log", svc.GetDecisionsLogFile())
	assert.Equal(t, []string{"espeak", "fire"}, svc.GetSpeechCommand())
}

func TestEnvEmptyModelFilesMeansFolderWalk(t *testing.T) {
	svc := newEnvWithLookup(lookupFrom(map[string]string{"MODEL_FILES": ""}))
	assert.Empty(t, svc.GetModelFiles())
}

func TestEnvInvalidValuesFallBack(t *testing.T) {
	svc := newEnvWithLookup(lookupFrom(map[string]string{
		"SAMPLING_INTERVAL": "ten",
		"ALERT_COOLDOWN":    "soon",
		"LIVE_DISPLAY":      "maybe",
	}))

	assert.Equal(t, 10, svc.GetSamplingInterval())
	assert.Equal(t, time.Second, svc.GetAlertCooldown())
	assert.True(t, svc.GetLiveDisplay())
}
