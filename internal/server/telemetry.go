package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/telemetry"
)

func (s *Server) registerTelemetryRoutes(g *gin.RouterGroup) {
	g.POST("", s.handleSampleNow)
	g.POST("/save-cpu-data", s.auth.AgentTokenMiddleware(), s.handleReport)
	g.GET("", s.handleListDevices)
	g.GET("/:id", s.handleGetDevice)
}

// handleSampleNow runs one sampling cycle for the local host.
//
//	POST /api/v1/cpu-performance
func (s *Server) handleSampleNow(c *gin.Context) {
	if s.telemetry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "local sampling is disabled"})
		return
	}
	r, err := s.telemetry.Tick(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "CPU performance data saved to database.",
		"data": gin.H{
			"performance":        telemetry.NewReport(r),
			"cpuPerformanceRank": r.Rank,
		},
	})
}

// handleReport accepts a daily report pushed by an agent. The report must
// carry a bucket for the server's current day.
//
//	POST /api/v1/cpu-performance/save-cpu-data
func (s *Server) handleReport(c *gin.Context) {
	var report telemetry.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.telemetry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telemetry is disabled"})
		return
	}
	sampler := s.telemetry.Sampler()
	reading, err := report.ReadingFor(sampler.Today(), sampler.Now())
	if err != nil {
		msg := err.Error()
		if errors.Is(err, telemetry.ErrMissingDay) {
			msg = "Performance data for today is missing"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	decision, err := s.telemetry.Upsert(c.Request.Context(), reading)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "CPU data saved",
		"decision": decision.String(),
	})
}

// handleListDevices lists device records, optionally filtered by productID.
//
//	GET /api/v1/cpu-performance?searchTerm=
func (s *Server) handleListDevices(c *gin.Context) {
	devs, err := s.devices.ListDevices(c.Request.Context(), c.Query("searchTerm"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, devs)
}

func (s *Server) handleGetDevice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	dev, err := s.devices.GetDevice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dev)
}
