// Package service runs the analysis pipeline: normalize the export, evaluate
// the rules, summarise, and store the result as the patient's latest analysis.
//
// The core and rules packages are pure; this package adds the concurrency
// limit, timeouts, persistence, metrics and logging around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/trutrend/internal/core"
	"github.com/JonMunkholm/trutrend/internal/logging"
	"github.com/JonMunkholm/trutrend/internal/metrics"
	"github.com/JonMunkholm/trutrend/internal/rules"
	"github.com/JonMunkholm/trutrend/internal/store"
)

var (
	ErrMissingPatientID = errors.New("missing patient id")
	ErrFileTooLarge     = errors.New("file too large")
)

// Options configures a Service.
type Options struct {
	MaxConcurrent int
	MaxWait       time.Duration

	// Timeout bounds one analysis, including storage. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration

	// MaxFileSize rejects larger inputs before parsing. Zero disables the check.
	MaxFileSize int64

	Normalize core.NormalizeOptions
	Rules     rules.Config
}

// DefaultOptions returns the service defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent: DefaultMaxConcurrent,
		MaxWait:       DefaultMaxWait,
		Timeout:       2 * time.Minute,
		MaxFileSize:   50 << 20,
		Normalize:     core.DefaultNormalizeOptions(),
		Rules:         rules.DefaultConfig(),
	}
}

// Service orchestrates analyses. It is safe for concurrent use.
type Service struct {
	store   store.ResultStore
	engine  *rules.Engine
	limiter *Limiter
	metrics *metrics.Metrics
	opts    Options

	now   func() time.Time
	newID func() string
}

// New builds a Service. A nil metrics value gets unregistered collectors.
func New(st store.ResultStore, m *metrics.Metrics, opts Options) (*Service, error) {
	if st == nil {
		return nil, errors.New("service: result store is required")
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &Service{
		store:   st,
		engine:  rules.NewEngine(opts.Rules),
		limiter: NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		metrics: m,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Request is one uploaded export.
type Request struct {
	PatientID string
	FileName  string
	Hint      core.DeviceType // empty or unknown means auto-detect
	Data      []byte
}

// Analyze ingests req and stores the outcome as the patient's latest analysis.
//
// Ingestion failures are returned as *core.IngestionError and leave any
// previously stored analysis in place.
func (s *Service) Analyze(ctx context.Context, req Request) (*core.Analysis, error) {
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return nil, ErrMissingPatientID
	}
	if s.opts.MaxFileSize > 0 && int64(len(req.Data)) > s.opts.MaxFileSize {
		s.metrics.ObserveFailure(req.Hint, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(req.Data), s.opts.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.metrics.ObserveFailure(req.Hint, metrics.OutcomeRejected)
		return nil, err
	}
	defer s.limiter.Release()

	s.metrics.InFlight.Inc()
	defer s.metrics.InFlight.Dec()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	id := s.newID()
	logger := logging.WithFields(ctx,
		"analysis_id", id,
		"patient_id", patientID,
		"file", req.FileName,
	)
	start := time.Now()

	ds, report, err := core.Normalize(req.Data, req.Hint, patientID, s.opts.Normalize)
	s.metrics.ObserveReport(report)
	if err != nil {
		s.observeIngestionFailure(req.Hint, report, err)
		logger.Warn("ingestion failed", "hint", req.Hint, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.metrics.ObserveFailure(ds.Device(), metrics.OutcomeError)
		return nil, err
	}

	a := &core.Analysis{
		ID:         id,
		DatasetID:  ds.ID(),
		PatientID:  patientID,
		Device:     ds.Device(),
		FileName:   req.FileName,
		ReceivedAt: s.now().UTC(),
		Span:       ds.Span(),
		Report:     *report,
		Findings:   s.engine.Evaluate(ds),
	}
	summary := rules.Summarize(ds)
	a.Summary = &summary

	if err := s.store.Replace(ctx, a); err != nil {
		s.metrics.ObserveFailure(a.Device, metrics.OutcomeError)
		logger.Error("store analysis", "error", err)
		return nil, fmt.Errorf("store analysis: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveAnalysis(a, elapsed)
	logger.Info("analysis complete",
		"device", a.Device,
		"rows_seen", report.RowsSeen,
		"glucose_accepted", report.RowsAcceptedByStream.Glucose,
		"dropped", report.DroppedTotal(),
		"findings", len(a.Findings),
		"reliability", summary.Quality.Reliability,
		"duration_ms", elapsed.Milliseconds(),
	)
	return a, nil
}

func (s *Service) observeIngestionFailure(hint core.DeviceType, report *core.IngestionReport, err error) {
	device := hint
	if report != nil {
		device = report.Device
	}
	switch {
	case errors.Is(err, core.ErrNoValidRows):
		s.metrics.ObserveFailure(device, metrics.OutcomeNoValidRows)
	case errors.Is(err, core.ErrUnrecognizedFormat):
		s.metrics.ObserveFailure(device, metrics.OutcomeUnrecognizedFormat)
	default:
		s.metrics.ObserveFailure(device, metrics.OutcomeError)
	}
}

// Latest returns the stored analysis for a patient.
func (s *Service) Latest(ctx context.Context, patientID string) (*core.Analysis, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrMissingPatientID
	}
	return s.store.Latest(ctx, patientID)
}

// Clear removes the stored analysis for a patient.
func (s *Service) Clear(ctx context.Context, patientID string) error {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return ErrMissingPatientID
	}
	if err := s.store.Delete(ctx, patientID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("analysis cleared", "patient_id", patientID)
	return nil
}

// Layouts lists the supported device export layouts in catalogue order.
func (s *Service) Layouts() []core.LayoutDefinition {
	return core.All()
}

// RuleNames lists the rules in evaluation order.
func (s *Service) RuleNames() []string {
	return s.engine.Names()
}

// LimiterStatus reports the current concurrency state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForAnalyses blocks until running analyses finish or ctx ends.
func (s *Service) WaitForAnalyses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
