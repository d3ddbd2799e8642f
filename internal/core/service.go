package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogcsv/internal/config"
	"github.com/JonMunkholm/catalogcsv/internal/logging"
)

// ErrImportNotFound is returned for unknown or expired run ids.
var ErrImportNotFound = errors.New("import not found")

// ServiceOptions bounds the service's resource use.
type ServiceOptions struct {
	MaxFileSize   int64         // 0 disables the limit
	MaxConcurrent int           // Parallel runs
	MaxWaitTime   time.Duration // Wait for a free slot before ErrTooManyImports
	Timeout       time.Duration // Per-run deadline
	ResultTTL     time.Duration // How long finished runs stay queryable
}

// ServiceOptionsFromConfig reads the service limits from the import config.
func ServiceOptionsFromConfig(cfg config.ImportConfig) ServiceOptions {
	return ServiceOptions{
		MaxFileSize:   cfg.MaxFileSize,
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWaitTime:   cfg.MaxWaitTime,
		Timeout:       cfg.Timeout,
		ResultTTL:     cfg.ResultTTL,
	}
}

// Service runs imports in the background and exposes their progress.
type Service struct {
	importer  *Importer
	templates TemplateStore
	fields    *FieldRegistry
	limiter   *ImportLimiter
	opts      ServiceOptions

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	ID        string
	CatalogID string
	FileName  string
	Cancel    context.CancelFunc
	Started   time.Time

	mu        sync.Mutex
	progress  ProgressInfo
	result    *ImportResult
	listeners []chan ProgressInfo
	done      chan struct{}
}

// NewService creates a service around an importer and a template store.
func NewService(importer *Importer, templates TemplateStore, opts ServiceOptions) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 15 * time.Minute
	}
	return &Service{
		importer:  importer,
		templates: templates,
		fields:    importer.Fields(),
		limiter:   NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:      opts,
		runs:      make(map[string]*activeRun),
	}
}

// Fields returns the registry mappings are validated against.
func (s *Service) Fields() *FieldRegistry { return s.fields }

// DefaultMapping returns the default mapping of the registered fields.
func (s *Service) DefaultMapping() *MappingConfiguration {
	return DefaultMapping(s.fields)
}

// StartImport reads the upload, takes an import slot and runs the import in
// the background. It returns the run id immediately after the upload has
// been read; use SubscribeProgress or GetResult to follow the run.
//
// Returns ErrFileTooLarge when the upload exceeds the size limit and
// ErrTooManyImports when no slot frees up in time.
func (s *Service) StartImport(ctx context.Context, catalogID, fileName string, r io.Reader, size int64, mapping *MappingConfiguration) (string, error) {
	if mapping != nil {
		if err := mapping.Validate(s.fields); err != nil {
			return "", err
		}
	}

	data, err := s.readUpload(r, size)
	if err != nil {
		return "", err
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)

	ar := &activeRun{
		ID:        runID,
		CatalogID: catalogID,
		FileName:  fileName,
		Cancel:    cancel,
		Started:   time.Now(),
		progress:  ProgressInfo{RunID: runID, Phase: PhaseReading, Errors: []string{}},
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[runID] = ar
	s.mu.Unlock()

	req := ImportRequest{
		RunID:     runID,
		CatalogID: catalogID,
		FileName:  fileName,
		Mapping:   mapping,
	}

	go func() {
		defer release()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(logging.ContextWithRunID(runCtx, runID)).Error("panic in import",
					"catalog_id", catalogID,
					"file", fileName,
					"panic", rec,
				)
				ar.finish(fmt.Errorf("internal error: %v", rec))
				s.cleanup(runID)
			}
		}()

		err := s.importer.Import(runCtx, bytes.NewReader(data), req, ar.update)
		ar.finish(err)
		s.cleanup(runID)
	}()

	return runID, nil
}

// PreviewImport analyzes an upload without importing it.
func (s *Service) PreviewImport(ctx context.Context, catalogID, fileName string, r io.Reader, size int64, mapping *MappingConfiguration) (*PreviewResponse, error) {
	data, err := s.readUpload(r, size)
	if err != nil {
		return nil, err
	}
	return s.importer.Preview(ctx, bytes.NewReader(data), ImportRequest{
		CatalogID: catalogID,
		FileName:  fileName,
		Mapping:   mapping,
	})
}

// readUpload buffers an upload, enforcing the size limit.
func (s *Service) readUpload(r io.Reader, size int64) ([]byte, error) {
	counter := NewCountingReader(r, size)
	counter.Limit = s.opts.MaxFileSize
	data, err := io.ReadAll(counter)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// SubscribeProgress returns a channel that receives progress updates,
// starting with the current state. The channel is closed when the run ends.
func (s *Service) SubscribeProgress(runID string) (<-chan ProgressInfo, error) {
	ar, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ProgressInfo, 16)

	ar.mu.Lock()
	defer ar.mu.Unlock()

	ch <- ar.progress
	if ar.result != nil {
		close(ch)
		return ch, nil
	}
	ar.listeners = append(ar.listeners, ch)
	return ch, nil
}

// GetProgress returns the current progress without blocking.
func (s *Service) GetProgress(runID string) (ProgressInfo, error) {
	ar, err := s.lookup(runID)
	if err != nil {
		return ProgressInfo{}, err
	}
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.progress, nil
}

// GetResult returns the result of a run, blocking until it finishes or ctx
// is done.
func (s *Service) GetResult(ctx context.Context, runID string) (*ImportResult, error) {
	ar, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}

	select {
	case <-ar.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ar.mu.Lock()
	defer ar.mu.Unlock()
	res := *ar.result
	return &res, nil
}

// CancelImport stops a run at its next phase boundary.
func (s *Service) CancelImport(runID string) error {
	ar, err := s.lookup(runID)
	if err != nil {
		return err
	}
	ar.Cancel()
	return nil
}

// LimiterStatus reports slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until no run is active or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) lookup(runID string) (*activeRun, error) {
	s.mu.RLock()
	ar, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, runID)
	}
	return ar, nil
}

// cleanup forgets a finished run after the result TTL.
func (s *Service) cleanup(runID string) {
	time.AfterFunc(s.opts.ResultTTL, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

// update is the run's progress sink.
func (ar *activeRun) update(info ProgressInfo) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.result != nil {
		return
	}
	ar.progress = info
	for _, ch := range ar.listeners {
		select {
		case ch <- info:
		default:
			// Listener is slow, skip this update
		}
	}
}

// finish records the result, notifies listeners one last time and closes
// them. Only the first call has an effect.
func (ar *activeRun) finish(runErr error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.result != nil {
		return
	}

	if runErr != nil && !ar.progress.Phase.Terminal() {
		ar.progress.Phase = PhaseFailed
		ar.progress.Description = "Import failed"
		ar.progress.Errors = append(ar.progress.Errors, runErr.Error())
	}

	ar.result = &ImportResult{
		RunID:     ar.ID,
		CatalogID: ar.CatalogID,
		FileName:  ar.FileName,
		TotalRows: ar.progress.TotalCount,
		Processed: ar.progress.ProcessedCount,
		Errors:    append([]string(nil), ar.progress.Errors...),
		Duration:  time.Since(ar.Started),
	}
	if runErr != nil {
		ar.result.Error = FormatUserError(runErr)
	}

	// The final state must reach every listener: drop its oldest pending
	// update when the buffer is full
	for _, ch := range ar.listeners {
		select {
		case ch <- ar.progress:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ar.progress
		}
		close(ch)
	}
	ar.listeners = nil
	close(ar.done)
}
