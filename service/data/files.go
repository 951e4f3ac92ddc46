package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
)

type filesDBService struct {
	CfgSvc    config.IService
	mu        sync.Mutex
	decisions *lumberjack.Logger
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
		decisions: &lumberjack.Logger{
			Filename:   cfgsvc.GetDecisionsLogFile(),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
		if stack := xerrors.StackTrace(e); stack != nil {
			customErr.StackTrace = stack.String()
		}
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", e)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return svc.newEntity(errorData, "errors")
}

// NewDecision appends one JSON line to the rotating decisions log.
func (svc *filesDBService) NewDecision(decision model.Decision) error {
	if decision.Timestamp == 0 {
		decision.Timestamp = time.Now().Unix()
	}

	line, err := json.Marshal(decision)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	_, err = svc.decisions.Write(append(line, '\n'))
	return err
}

func (svc *filesDBService) NewAgentStats(stats model.AgentStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "agent-stats")
}

func (svc *filesDBService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "framer-stats")
}

func (svc *filesDBService) NewDetectorStats(stats model.DetectorStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "detector-stats")
}

func (svc *filesDBService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "alerter-stats")
}

func (svc *filesDBService) NewServerStats(stats model.ServerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "server-stats")
}

func (svc *filesDBService) Finalize() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	_ = svc.decisions.Close()
}

func (svc *filesDBService) newEntity(entity any, filename string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(entity, filepath.Join(svc.CfgSvc.GetInputFolder(), filename+".json"))
}

// newEntity appends entity to the JSON array stored at path.
func newEntity[T any](entity T, path string) error {
	entities, err := retrieveEntities[T](path)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func retrieveEntities[T any](path string) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return entities, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return entities, nil
}
