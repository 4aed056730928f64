package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/finsent/internal/logger"
	"github.com/samcharles93/finsent/internal/pipeline"
)

const (
	msgUnexpected      = "An unexpected error occurred"
	msgClassifyFailure = "Error classifying text: "
)

// Classifier is the part of the inference pipeline the handlers need.
type Classifier interface {
	Classify(ctx context.Context, texts []string) pipeline.Outcome
}

type Server struct {
	classifier Classifier
	model      string
	metrics    *Metrics
	clock      func() time.Time
}

// NewServer wires the handlers to a loaded classifier. metrics may be nil.
func NewServer(classifier Classifier, model string, metrics *Metrics) *Server {
	return &Server{
		classifier: classifier,
		model:      model,
		metrics:    metrics,
		clock:      time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/classify", s.handleClassify)
	e.GET("/healthz", s.handleHealthz)
	if s.metrics != nil {
		e.GET("/metrics", s.metrics.handle)
	}
}

type errorBody struct {
	Error any `json:"error"`
}

type healthBody struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, healthBody{Message: "OK", Model: s.model})
}

func (s *Server) handleClassify(c *echo.Context) (err error) {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	status := http.StatusOK
	// write records the status that actually reached the client.
	write := func(code int, v any) error {
		var werr error
		status, werr = encodeJSON(c, code, v)
		return werr
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("unexpected error", "error", fmt.Sprintf("panic: %v", rec))
			status = http.StatusInternalServerError
			err = write(status, errorBody{Error: msgUnexpected})
		}
		s.metrics.observeRequest(status)
	}()

	if s.classifier == nil {
		status = http.StatusInternalServerError
		log.Error("unexpected error", "error", "classifier not configured")
		return write(status, errorBody{Error: msgUnexpected})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		status = http.StatusInternalServerError
		log.Error("unexpected error", "error", err)
		return write(status, errorBody{Error: msgUnexpected})
	}

	req, err := decodeRequest(body)
	if err != nil {
		status = http.StatusBadRequest
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.Debug("request validation failed", "errors", len(verr.Errors))
			return write(status, errorBody{Error: verr.Errors})
		}
		return write(status, errorBody{Error: err.Error()})
	}

	texts := req.Texts()
	start := s.clock()
	out := s.classifier.Classify(ctx, texts)
	s.metrics.observeInference(len(texts), s.clock().Sub(start), !out.OK())

	if !out.OK() {
		log.Error("error classifying text", "items", len(texts), "error", out.Err)
		return write(status, []errorBody{{Error: msgClassifyFailure + out.Err.Error()}})
	}
	return write(status, out.Results)
}

// writeJSON falls back to the generic 500 body when v cannot be encoded,
// for example a NaN score from a misbehaving backend.
func writeJSON(c *echo.Context, status int, v any) error {
	_, err := encodeJSON(c, status, v)
	return err
}

// encodeJSON writes v and returns the status sent, which differs from
// status when encoding fails.
func encodeJSON(c *echo.Context, status int, v any) (int, error) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("unexpected error", "error", fmt.Errorf("encode response: %w", err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgUnexpected + `"}`)
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(status)
	_, err = w.Write(body)
	return status, err
}
