package config

import (
	"fmt"
	"time"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetRecordingsFolder() string {
	return "./recordings"
}

func (svc *hardcodedService) GetUploadsFolder() string {
	return "./static"
}

func (svc *hardcodedService) GetLogLevel() string {
	return "INFO"
}

func (svc *hardcodedService) GetLogFile() string {
	return ""
}

func (svc *hardcodedService) GetDecisionsLogFile() string {
	return fmt.Sprintf("%s/decisions.log", svc.GetInputFolder())
}

func (svc *hardcodedService) GetModelsFolder() string {
	return "./new_model"
}

func (svc *hardcodedService) GetModelFiles() []string {
	// The models the ensemble was built with. Empty means every file in the folder.
	return []string{
		"model.onnx",
		"model2.onnx",
		"model3.onnx",
		"model-11.onnx",
		"model-12.onnx",
	}
}

func (svc *hardcodedService) GetModelLoadPolicy() string {
	return "skip"
}

func (svc *hardcodedService) GetInferenceBackend() string {
	return "onnxruntime"
}

func (svc *hardcodedService) GetOnnxLibraryPath() string {
	return "./third_party/onnxruntime.so"
}

func (svc *hardcodedService) GetFakeLabels() []int {
	return []int{0, 0, 1, 0, 0}
}

func (svc *hardcodedService) GetFrameSize() int {
	return 256
}

func (svc *hardcodedService) GetClassifierTimeout() time.Duration {
	return 2 * time.Second
}

func (svc *hardcodedService) GetSource() Source {
	return Source{
		ID:   "cam0",
		Name: "default camera",
		URL:  "0",
		Type: "capture",
	}
}

func (svc *hardcodedService) GetLiveMaxVotes() int {
	return 3
}

func (svc *hardcodedService) GetSamplingInterval() int {
	return 10
}

func (svc *hardcodedService) GetAlertCooldown() time.Duration {
	return time.Second
}

func (svc *hardcodedService) GetLiveDisplay() bool {
	return true
}

func (svc *hardcodedService) GetAgentPeriodicTimeout() int {
	return 30
}

func (svc *hardcodedService) GetFramerBufferSize() int {
	return 2
}

func (svc *hardcodedService) GetSpeechEnabled() bool {
	return true
}

func (svc *hardcodedService) GetSpeechCommand() []string {
	return []string{"spd-say", "has fire.."}
}

func (svc *hardcodedService) GetWebhookURL() string {
	return ""
}

func (svc *hardcodedService) GetWebhookRetries() int {
	return 3
}

func (svc *hardcodedService) GetStorageType() string {
	return "local"
}

func (svc *hardcodedService) GetS3Parameters() S3Parameters {
	return S3Parameters{
		Endpoint: "http://127.0.0.1:9000",
		Region:   "us-east-1",
		Bucket:   "fire-alerts",
	}
}

func (svc *hardcodedService) GetHTTPAddress() string {
	return "0.0.0.0:8889"
}

func (svc *hardcodedService) GetMaxUploadSize() int64 {
	return 16 << 20
}
