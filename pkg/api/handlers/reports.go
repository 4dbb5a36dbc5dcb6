package handlers

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/observability"
	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/ethpandaops/tally/pkg/table"
	"github.com/gofiber/fiber/v3"
)

// queryFrom builds the report query from the request's search and date parameters
func queryFrom(c fiber.Ctx) *table.Query {
	return table.ParseQuery(func(key string) string {
		return c.Query(key)
	})
}

// report parses the kind route parameter and builds the filtered table
func (s *Server) report(c fiber.Ctx, format string) (reports.Kind, *table.Table, error) {
	kind, err := reports.ParseKind(c.Params("kind"))
	if err != nil {
		return "", nil, ErrInvalidKind
	}

	start := time.Now()

	t, err := s.exporter.Table(c.Context(), kind, queryFrom(c))
	if err != nil {
		s.log.WithError(err).WithField("kind", kind).Error("Failed to build report")
		observability.RecordReport(kind.String(), format, "failed", time.Since(start))

		return "", nil, ErrReportFailed
	}

	observability.RecordReport(kind.String(), format, "success", time.Since(start))

	return kind, t, nil
}

// GetReport handles GET /api/v1/reports/:kind
func (s *Server) GetReport(c fiber.Ctx) error {
	_, t, err := s.report(c, export.FormatJSON)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(t.ToDict())
}

// GetReportHTML handles GET /api/v1/reports/:kind/html
func (s *Server) GetReportHTML(c fiber.Ctx) error {
	numbering := true

	if raw := c.Query("numbering"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ErrInvalidNumbering
		}

		numbering = parsed
	}

	_, t, err := s.report(c, export.FormatHTML)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)

	return c.Status(fiber.StatusOK).SendString(t.RenderHTML(numbering))
}

// DownloadReport handles GET /api/v1/reports/:kind/download
func (s *Server) DownloadReport(c fiber.Ctx) error {
	kind, err := reports.ParseKind(c.Params("kind"))
	if err != nil {
		return ErrInvalidKind
	}

	var buf bytes.Buffer

	result, err := s.exporter.Export(c.Context(), &buf, export.Request{
		Kind:   kind,
		Query:  queryFrom(c),
		UserID: c.Get(s.userHeader),
		Source: export.SourceAPI,
	})
	if err != nil {
		s.log.WithError(err).WithField("kind", kind).Error("Failed to export report")
		return ErrReportFailed
	}

	c.Attachment(result.Filename)
	c.Set(fiber.HeaderContentType, export.ContentType)

	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// ListExports handles GET /api/v1/exports
func (s *Server) ListExports(c fiber.Ctx) error {
	limit := DefaultExportsLimit

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return ErrInvalidLimit
		}

		limit = parsed
	}

	entries, err := s.exporter.Recorder().List(c.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list export history")
		return ErrHistoryUnavailable
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"exports": entries,
		"total":   len(entries),
	})
}

// ListSchedules handles GET /api/v1/schedules
func (s *Server) ListSchedules(c fiber.Ctx) error {
	statuses, err := s.scheduler.Status(c.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to read schedule status")
		return fiber.NewError(fiber.StatusServiceUnavailable, "schedule status unavailable")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"leader": s.scheduler.IsLeader(),
		"jobs":   statuses,
	})
}

// RunSchedule handles POST /api/v1/schedules/:name/run
func (s *Server) RunSchedule(c fiber.Ctx) error {
	name := c.Params("name")

	result, err := s.scheduler.RunJob(c.Context(), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			return ErrJobNotFound
		}

		s.log.WithError(err).WithField("job", name).Error("Failed to run scheduled job")

		return ErrReportFailed
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"job":    result.Job,
		"path":   result.Path,
		"export": result.Result.Entry,
	})
}
