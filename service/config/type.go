package config

import "time"

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetRecordingsFolder() string
	GetUploadsFolder() string
	GetLogLevel() string
	GetLogFile() string
	GetDecisionsLogFile() string

	// Classifier pool
	GetModelsFolder() string
	GetModelFiles() []string
	GetModelLoadPolicy() string
	GetInferenceBackend() string
	GetOnnxLibraryPath() string
	GetFakeLabels() []int
	GetFrameSize() int
	GetClassifierTimeout() time.Duration

	// Live stream
	GetSource() Source
	GetLiveMaxVotes() int
	GetSamplingInterval() int
	GetAlertCooldown() time.Duration
	GetLiveDisplay() bool
	GetAgentPeriodicTimeout() int
	GetFramerBufferSize() int

	// Alert sinks
	GetSpeechEnabled() bool
	GetSpeechCommand() []string
	GetWebhookURL() string
	GetWebhookRetries() int
	GetStorageType() string
	GetS3Parameters() S3Parameters

	// Upload server
	GetHTTPAddress() string
	GetMaxUploadSize() int64
}

// Source describes where live frames come from.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// URL is a device index ("0"), a file path or an RTSP URL.
	URL string `json:"url"`
	// Type is "capture" or "random".
	Type string `json:"type"`
}

type S3Parameters struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}
