package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/countsheet/internal/bundle"
	"github.com/JonMunkholm/countsheet/internal/logging"
	"github.com/JonMunkholm/countsheet/internal/sheet"
)

// DefaultLayout is used when a request names no layout.
const DefaultLayout = "auto"

// ReferenceSource hands out the reference data current at call time.
type ReferenceSource interface {
	Current() *Reference
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	OutputDir string
	Rules     Rules
	Limiter   *RunLimiter      // nil means NewRunLimiter(0, 0)
	Now       func() time.Time // nil means time.Now
}

// Service runs the count-proposal pipeline.
type Service struct {
	ref       ReferenceSource
	rules     Rules
	limiter   *RunLimiter
	outputDir string
	now       func() time.Time
}

// NewService creates a Service writing runs under cfg.OutputDir.
func NewService(ref ReferenceSource, cfg ServiceConfig) (*Service, error) {
	if ref == nil {
		return nil, errors.New("reference source is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRunLimiter(0, 0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		ref:       ref,
		rules:     cfg.Rules,
		limiter:   cfg.Limiter,
		outputDir: cfg.OutputDir,
		now:       cfg.Now,
	}, nil
}

// Rules returns the pipeline rules the service runs with.
func (s *Service) Rules() Rules { return s.rules }

// Limiter returns the run limiter, for health reporting and shutdown.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// Reference returns the reference data currently in use, or nil.
func (s *Service) Reference() *Reference { return s.ref.Current() }

// Request is one generation request.
type Request struct {
	FileName    string
	Data        io.Reader
	Layout      string     // registered layout key; "" means DefaultLayout
	Store       string     // "" for every store
	ResumeToken string     // last barcode of the previous proposal
	CursorMode  CursorMode // "" means the rules' cursor mode
	PickList    *bool      // nil means the rules' setting
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Dir       string
	Archive   Artifact
	Artifacts []Artifact // the workbooks inside the archive
	Stats     RunStats
}

// Outcome is the in-memory result of the pipeline, before anything is
// written.
type Outcome struct {
	Sample  []EnrichedRecord
	Reports []Report
	Options ReportOptions
	Stats   RunStats
}

// Generate runs the whole pipeline for req and writes the reports and their
// archive into a fresh run directory. Only one run proceeds at a time per
// limiter slot; others wait and may fail with ErrTooManyRuns.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runID := uuid.NewString()
	log := logging.WithFields(ctx,
		"run_id", runID,
		"file", req.FileName,
		"store", req.Store,
	)
	ctx = logging.NewContext(ctx, log)
	start := time.Now()

	ref := s.ref.Current()
	if ref == nil {
		return nil, ErrNoReference
	}

	table, err := sheet.Read(req.Data, req.FileName)
	if err != nil {
		return nil, stageErr(StageRead, err)
	}
	log.Debug("upload read", "rows", len(table.Rows), "sheet", table.Name)

	out, err := s.Process(ctx, table.Rows, ref, req)
	if err != nil {
		log.Warn("run failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	res, err := s.write(runID, out)
	if err != nil {
		log.Error("writing run output failed", "error", err)
		return nil, err
	}

	log.Info("run completed",
		"archive", res.Archive.Name,
		"client_ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
		"input_rows", out.Stats.InputRows,
		"joined", out.Stats.Joined,
		"store_rows", out.Stats.StoreRows,
		"sampled", out.Stats.Sampled,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Process runs normalize, join, derive, select and report on raw rows
// without touching the filesystem. The same rows, reference and request
// always produce the same outcome.
func (s *Service) Process(ctx context.Context, rows [][]string, ref *Reference, req Request) (*Outcome, error) {
	log := logging.FromContext(ctx)
	rules := s.rules

	layoutKey := req.Layout
	if layoutKey == "" {
		layoutKey = DefaultLayout
	}
	layout, ok := GetLayout(layoutKey)
	if !ok {
		return nil, stageErr(StageNormalize, fmt.Errorf("%w: %q", ErrUnknownLayout, layoutKey))
	}

	var stats RunStats

	norm, err := Normalize(rows, layout, rules)
	if err != nil {
		return nil, stageErr(StageNormalize, err)
	}
	stats.InputRows = norm.InputRows
	stats.BlankRows = norm.BlankRows
	stats.WarehouseExcluded = norm.WarehouseExcluded
	log.Debug("normalized", "layout", layout.Key, "records", len(norm.Records),
		"blank", norm.BlankRows, "warehouse_excluded", norm.WarehouseExcluded)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	joined, js, err := Join(norm.Records, ref)
	if err != nil {
		return nil, stageErr(StageJoin, err)
	}
	stats.Joined = len(joined)
	stats.CatalogMisses = js.CatalogMisses
	stats.StoreMisses = js.StoreMisses
	log.Debug("joined", "rows", len(joined), "catalog_misses", js.CatalogMisses, "store_misses", js.StoreMisses)

	derived, ds, err := Derive(joined, ref.Catalog, rules)
	if err != nil {
		return nil, stageErr(StageDerive, err)
	}
	stats.BrandExcluded = ds.BrandExcluded
	stats.MissingSkipped = ds.MissingSkipped
	if ds.BrandFilterSkipped {
		log.Warn("catalog has no brand column, brand exclusion skipped", "excluded_brands", rules.ExcludedBrands)
	}
	if ds.MissingSkipped > 0 {
		log.Warn("rows without barcode inputs skipped", "count", ds.MissingSkipped, "first", ds.FirstMissing.Error())
	}
	log.Debug("derived", "rows", len(derived), "brand_excluded", ds.BrandExcluded)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := SelectQuery{
		Store:           req.Store,
		ResumeToken:     req.ResumeToken,
		CursorMode:      req.CursorMode,
		SamplePercent:   rules.SamplePercent,
		UnassignedStore: rules.UnassignedStore,
	}
	if query.CursorMode == "" {
		query.CursorMode = rules.CursorMode
	}
	sel, err := Select(derived, ref.Stores, query)
	if err != nil {
		return nil, stageErr(StageSelect, err)
	}
	stats.StoreRows = sel.StoreRows
	stats.Sampled = len(sel.Rows)
	stats.Stores = len(GroupByStore(sel.Rows))
	log.Debug("selected", "store_rows", sel.StoreRows, "sampled", len(sel.Rows), "cursor", string(query.CursorMode))

	opts := ReportOptions{
		Store:      req.Store,
		Date:       s.now().Format(rules.DateFormat),
		SizePrefix: rules.SizePrefix,
		PickList:   rules.PickList,
	}
	if req.PickList != nil {
		opts.PickList = *req.PickList
	}

	return &Outcome{
		Sample:  sel.Rows,
		Reports: BuildReports(sel.Rows, opts),
		Options: opts,
		Stats:   stats,
	}, nil
}

// write persists the outcome under a new run directory. On failure the
// directory is removed.
func (s *Service) write(runID string, out *Outcome) (res *Result, err error) {
	dir := filepath.Join(s.outputDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, stageErr(StageReport, fmt.Errorf("create run directory: %w", err))
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	artifacts := make([]Artifact, 0, len(out.Reports))
	paths := make([]string, 0, len(out.Reports))
	for _, r := range out.Reports {
		path := filepath.Join(dir, r.Workbook.FileName)
		if err := sheet.WriteFile(path, r.Workbook); err != nil {
			return nil, stageErr(StageReport, err)
		}
		artifacts = append(artifacts, Artifact{Kind: r.Kind, Name: r.Workbook.FileName, Path: path})
		paths = append(paths, path)
	}

	archiveName := ArchiveName(out.Options)
	archivePath := filepath.Join(dir, archiveName)
	if _, err := bundle.Create(archivePath, paths, s.now()); err != nil {
		return nil, stageErr(StagePackage, err)
	}

	return &Result{
		RunID:     runID,
		Dir:       dir,
		Archive:   Artifact{Kind: ArtifactArchive, Name: archiveName, Path: archivePath},
		Artifacts: artifacts,
		Stats:     out.Stats,
	}, nil
}
