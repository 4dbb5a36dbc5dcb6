package handlers

import "github.com/gofiber/fiber/v3"

var (
	// ErrInvalidKind is returned for report kinds other than projects and tasks
	ErrInvalidKind = fiber.NewError(fiber.StatusBadRequest, "invalid report kind, expected projects or tasks")

	// ErrInvalidLimit is returned when the limit is not a non-negative integer
	ErrInvalidLimit = fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")

	// ErrInvalidNumbering is returned when numbering is not a boolean
	ErrInvalidNumbering = fiber.NewError(fiber.StatusBadRequest, "numbering must be true or false")

	// ErrJobNotFound is returned when a scheduled job is not configured
	ErrJobNotFound = fiber.NewError(fiber.StatusNotFound, "scheduled job not found")

	// ErrReportFailed is returned when report data cannot be loaded or written
	ErrReportFailed = fiber.NewError(fiber.StatusInternalServerError, "failed to build report")

	// ErrHistoryUnavailable is returned when the export history cannot be read
	ErrHistoryUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "export history unavailable")
)
