// Package handlers implements the report API request handlers.
package handlers

import (
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// DefaultExportsLimit is the number of history entries listed without a limit parameter
const DefaultExportsLimit = 50

// Server holds the dependencies of the API handlers
type Server struct {
	exporter   *export.Exporter
	scheduler  scheduler.Service
	userHeader string
	log        logrus.FieldLogger
}

// NewServer creates a new API server instance. userHeader names the request
// header carrying the user id used in download file names.
func NewServer(exporter *export.Exporter, sched scheduler.Service, userHeader string, log logrus.FieldLogger) *Server {
	return &Server{
		exporter:   exporter,
		scheduler:  sched,
		userHeader: userHeader,
		log:        log.WithField("component", "api.handlers"),
	}
}

// Register mounts all handlers on router
func (s *Server) Register(router fiber.Router) {
	router.Get("/reports/:kind", s.GetReport)
	router.Get("/reports/:kind/html", s.GetReportHTML)
	router.Get("/reports/:kind/download", s.DownloadReport)
	router.Get("/exports", s.ListExports)
	router.Get("/schedules", s.ListSchedules)
	router.Post("/schedules/:name/run", s.RunSchedule)
}
