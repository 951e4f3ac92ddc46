package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

// envService reads settings from the environment and falls back to the
// hardcoded defaults for anything unset or unparsable.
type envService struct {
	IService
	lookup func(string) (string, bool)
}

func NewEnv() IService {
	return newEnvWithLookup(os.LookupEnv)
}

func newEnvWithLookup(lookup func(string) (string, bool)) IService {
	return &envService{
		IService: NewHardCoded(),
		lookup:   lookup,
	}
}

func (svc *envService) str(key, def string) string {
	v, ok := svc.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func (svc *envService) integer(key string, def int) int {
	v, ok := svc.lookup(key)
	if !ok || v == "" {
		return def
	}
	i, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		lgr.Logger.Warn("invalid integer setting, using default", slog.String("key", key), slog.Int("default", def))
		return def
	}
	return i
}

func (svc *envService) boolean(key string, def bool) bool {
	v, ok := svc.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		lgr.Logger.Warn("invalid boolean setting, using default", slog.String("key", key), slog.Bool("default", def))
		return def
	}
	return b
}

// duration accepts Go durations ("1500ms") or plain seconds ("1.5").
func (svc *envService) duration(key string, def time.Duration) time.Duration {
	v, ok := svc.lookup(key)
	if !ok || v == "" {
		return def
	}
	v = strings.TrimSpace(v)
	if secs, err := cast.ToFloat64E(v); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		lgr.Logger.Warn("invalid duration setting, using default", slog.String("key", key), slog.Duration("default", def))
		return def
	}
	return d
}

func (svc *envService) list(key string, def []string) []string {
	v, ok := svc.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return svc.integer("MODE_MAX_SHUTDOWN_TIME", svc.IService.GetModeMaxShutdownTime())
}

func (svc *envService) GetInputFolder() string {
	return svc.str("INPUT_FOLDER", svc.IService.GetInputFolder())
}

func (svc *envService) GetRecordingsFolder() string {
	return svc.str("RECORDINGS_FOLDER", svc.IService.GetRecordingsFolder())
}

func (svc *envService) GetUploadsFolder() string {
	return svc.str("UPLOADS_FOLDER", svc.IService.GetUploadsFolder())
}

func (svc *envService) GetLogLevel() string {
	return svc.str("LOG_LEVEL", svc.IService.GetLogLevel())
}

func (svc *envService) GetLogFile() string {
	return svc.str("LOG_FILE", svc.IService.GetLogFile())
}

func (svc *envService) GetDecisionsLogFile() string {
	return svc.str("DECISIONS_LOG_FILE", svc.GetInputFolder()+"/decisions.log")
}

func (svc *envService) GetModelsFolder() string {
	return svc.str("MODELS_FOLDER", svc.IService.GetModelsFolder())
}

func (svc *envService) GetModelFiles() []string {
	return svc.list("MODEL_FILES", svc.IService.GetModelFiles())
}

func (svc *envService) GetModelLoadPolicy() string {
	return svc.str("MODEL_LOAD_POLICY", svc.IService.GetModelLoadPolicy())
}

func (svc *envService) GetInferenceBackend() string {
	return svc.str("INFERENCE_BACKEND", svc.IService.GetInferenceBackend())
}

func (svc *envService) GetOnnxLibraryPath() string {
	return svc.str("ONNX_LIBRARY_PATH", svc.IService.GetOnnxLibraryPath())
}

func (svc *envService) GetFakeLabels() []int {
	raw := svc.list("FAKE_LABELS", nil)
	if raw == nil {
		return svc.IService.GetFakeLabels()
	}
	labels := make([]int, 0, len(raw))
	for _, r := range raw {
		l, err := cast.ToIntE(r)
		if err != nil {
			// Anything else makes the fake classifier fail, which is useful in dev.
			l = -1
		}
		labels = append(labels, l)
	}
	return labels
}

func (svc *envService) GetFrameSize() int {
	return svc.integer("FRAME_SIZE", svc.IService.GetFrameSize())
}

func (svc *envService) GetClassifierTimeout() time.Duration {
	return svc.duration("CLASSIFIER_TIMEOUT", svc.IService.GetClassifierTimeout())
}

func (svc *envService) GetSource() Source {
	def := svc.IService.GetSource()
	return Source{
		ID:   svc.str("SOURCE_ID", def.ID),
		Name: svc.str("SOURCE_NAME", def.Name),
		URL:  svc.str("SOURCE_URL", def.URL),
		Type: svc.str("SOURCE_TYPE", def.Type),
	}
}

func (svc *envService) GetLiveMaxVotes() int {
	return svc.integer("LIVE_MAX_VOTES", svc.IService.GetLiveMaxVotes())
}

func (svc *envService) GetSamplingInterval() int {
	return svc.integer("SAMPLING_INTERVAL", svc.IService.GetSamplingInterval())
}

func (svc *envService) GetAlertCooldown() time.Duration {
	return svc.duration("ALERT_COOLDOWN", svc.IService.GetAlertCooldown())
}

func (svc *envService) GetLiveDisplay() bool {
	return svc.boolean("LIVE_DISPLAY", svc.IService.GetLiveDisplay())
}

func (svc *envService) GetAgentPeriodicTimeout() int {
	return svc.integer("AGENT_PERIODIC_TIMEOUT", svc.IService.GetAgentPeriodicTimeout())
}

func (svc *envService) GetFramerBufferSize() int {
	return svc.integer("FRAMER_BUFFER_SIZE", svc.IService.GetFramerBufferSize())
}

func (svc *envService) GetSpeechEnabled() bool {
	return svc.boolean("SPEECH_ENABLED", svc.IService.GetSpeechEnabled())
}

func (svc *envService) GetSpeechCommand() []string {
	cmd := svc.str("SPEECH_COMMAND", "")
	if cmd == "" {
		return svc.IService.GetSpeechCommand()
	}
	return strings.Fields(cmd)
}

func (svc *envService) GetWebhookURL() string {
	return svc.str("WEBHOOK_URL", svc.IService.GetWebhookURL())
}

func (svc *envService) GetWebhookRetries() int {
	return svc.integer("WEBHOOK_RETRIES", svc.IService.GetWebhookRetries())
}

func (svc *envService) GetStorageType() string {
	return svc.str("STORAGE_TYPE", svc.IService.GetStorageType())
}

func (svc *envService) GetS3Parameters() S3Parameters {
	def := svc.IService.GetS3Parameters()
	return S3Parameters{
		Endpoint:  svc.str("S3_ENDPOINT", def.Endpoint),
		Region:    svc.str("S3_REGION", def.Region),
		Bucket:    svc.str("S3_BUCKET", def.Bucket),
		AccessKey: svc.str("S3_ACCESS_KEY", def.AccessKey),
		SecretKey: svc.str("S3_SECRET_KEY", def.SecretKey),
	}
}

func (svc *envService) GetHTTPAddress() string {
	return svc.str("HTTP_ADDRESS", svc.IService.GetHTTPAddress())
}

func (svc *envService) GetMaxUploadSize() int64 {
	return int64(svc.integer("MAX_UPLOAD_SIZE", int(svc.IService.GetMaxUploadSize())))
}
