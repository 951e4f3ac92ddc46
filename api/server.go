// Package api serves the upload page and classifies uploaded images with the
// whole classifier pool.
package api

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

//go:embed static/index.html
var static embed.FS

const imageField = "image"

// ProcessImageResponse is the body of a successful POST /processimage.
type ProcessImageResponse struct {
	HasFire     bool     `json:"has_fire"`
	Predictions []string `json:"predictions"`
}

type Server struct {
	CfgSvc  config.IService
	DataSvc data.IService
	batch   *ensemble.Batch

	mu        sync.Mutex
	startTime time.Time
	stats     model.ServerStats
}

func NewServer(cfgSvc config.IService, dataSvc data.IService, pools ensemble.PoolSource) *Server {
	return &Server{
		CfgSvc:    cfgSvc,
		DataSvc:   dataSvc,
		batch:     ensemble.NewBatch(pools, cfgSvc.GetClassifierTimeout()),
		startTime: time.Now(),
	}
}

// Router builds the gin engine serving the upload page and the classifier.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = s.CfgSvc.GetMaxUploadSize()

	router.GET("/", s.home)
	router.GET("/healthz", s.health)
	router.POST("/processimage", s.processImage)

	return router
}

// Stats returns the request counters since the server started.
func (s *Server) Stats() model.ServerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.Uptime = int64(time.Since(s.startTime).Seconds())
	return stats
}

func (s *Server) count(fn func(*model.ServerStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Requests++
	fn(&s.stats)
}

func (s *Server) home(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) health(c *gin.Context) {
	size, err := s.batch.PoolSize(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"classifiers": size})
}

func (s *Server) processImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.CfgSvc.GetMaxUploadSize())

	header, err := c.FormFile(imageField)
	if err != nil {
		s.count(func(st *model.ServerStats) { st.BadImages++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing %s file", imageField)})
		return
	}

	file, err := header.Open()
	if err != nil {
		s.count(func(st *model.ServerStats) { st.BadImages++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()

	img, err := s.decode(ctx, file)
	if err != nil {
		s.count(func(st *model.ServerStats) { st.BadImages++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot decode image: %v", err)})
		return
	}

	frame, err := inference.Preprocess(img, s.CfgSvc.GetFrameSize())
	if err != nil {
		s.count(func(st *model.ServerStats) { st.BadImages++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := s.batch.Classify(ctx, frame)
	if err != nil {
		lgr.Logger.ErrorContext(ctx, "upload was not classified", slog.Any("error", lgr.WithStack(err)))
		if errors.Is(err, ensemble.ErrNoVotes) {
			s.count(func(st *model.ServerStats) { st.NoVotes++ })
		} else {
			s.count(func(*model.ServerStats) {})
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	predictions := lo.Map(decision.Labels(), func(l ensemble.Label, _ int) string {
		return l.Answer()
	})

	s.count(func(st *model.ServerStats) {
		if decision.IsFire {
			st.Fire++
		} else {
			st.NoFire++
		}
	})
	s.record(ctx, decision, predictions)

	c.JSON(http.StatusOK, ProcessImageResponse{
		HasFire:     decision.IsFire,
		Predictions: predictions,
	})
}

// decode keeps a copy of the upload under a random name and decodes it,
// honoring EXIF orientation. Failing to keep the copy is not an error.
func (s *Server) decode(ctx context.Context, r io.Reader) (image.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	folder := s.CfgSvc.GetUploadsFolder()
	name := filepath.Join(folder, uuid.NewString())
	if err := os.MkdirAll(folder, 0o755); err != nil {
		lgr.Logger.WarnContext(ctx, "cannot create uploads folder", slog.String("folder", folder), slog.Any("error", err))
	} else if err := os.WriteFile(name, raw, 0o644); err != nil {
		lgr.Logger.WarnContext(ctx, "cannot save upload", slog.String("file", name), slog.Any("error", err))
	}

	return imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
}

func (s *Server) record(ctx context.Context, decision ensemble.Decision, predictions []string) {
	if s.DataSvc == nil {
		return
	}
	err := s.DataSvc.NewDecision(model.Decision{
		Source:      "upload",
		IsFire:      decision.IsFire,
		Probability: decision.Probability,
		Predictions: predictions,
		Failures:    len(decision.Failures()),
	})
	if err != nil {
		lgr.Logger.ErrorContext(ctx, "error recording decision", slog.Any("error", lgr.WithStack(err)))
	}
}

// TraceHeader carries the trace ID of a request, the trace_id of its log records.
const TraceHeader = "X-Trace-Id"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := lgr.NewTraceContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, lgr.TraceID(ctx))

		c.Next()
		lgr.Logger.DebugContext(ctx,
			"request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
