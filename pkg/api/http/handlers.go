package http

import (
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ReadLefRequest mirrors Runtime.ReadLef. Tech and Library default to true.
type ReadLefRequest struct {
	File    string `json:"file" binding:"required"`
	Lib     string `json:"lib"`
	Tech    *bool  `json:"tech"`
	Library *bool  `json:"library"`
}

// ReadDefRequest mirrors Runtime.ReadDef
type ReadDefRequest struct {
	File             string `json:"file" binding:"required"`
	ContinueOnErrors bool   `json:"continue_on_errors"`
	FloorplanInit    bool   `json:"floorplan_init"`
	Incremental      bool   `json:"incremental"`
}

// FileRequest names a single file or snapshot path
type FileRequest struct {
	File string `json:"file" binding:"required"`
}

// LinkRequest names the top module
type LinkRequest struct {
	Top string `json:"top" binding:"required"`
}

// WriteDefRequest mirrors Runtime.WriteDef
type WriteDefRequest struct {
	File    string `json:"file" binding:"required"`
	Version string `json:"version"`
}

// WriteCdlRequest mirrors Runtime.WriteCdl
type WriteCdlRequest struct {
	File           string   `json:"file" binding:"required"`
	Masters        []string `json:"masters"`
	IncludeFillers bool     `json:"include_fillers"`
}

// DiffRequest mirrors Runtime.DiffDbs
type DiffRequest struct {
	A      string `json:"a" binding:"required"`
	B      string `json:"b" binding:"required"`
	Report string `json:"report" binding:"required"`
}

// ThreadsRequest accepts "max" or a decimal count
type ThreadsRequest struct {
	Count string `json:"count" binding:"required"`
}

// handleHealth reports the runtime state and its worker pools
func (s *Server) handleHealth(c *gin.Context) {
	initialized := s.runtime != nil && s.runtime.Initialized()
	pools := "ok"
	status, code := "healthy", http.StatusOK

	switch {
	case !initialized:
		pools = "unavailable"
		status, code = "unhealthy", http.StatusServiceUnavailable
	case !s.runtime.Health().IsHealthy():
		pools = "degraded"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"runtime": initialized,
			"pools":   pools,
		},
	})
}

// handleGetDesign summarizes the database
func (s *Server) handleGetDesign(c *gin.Context) {
	if !s.ready(c) {
		return
	}

	db := s.runtime.Db()
	out := gin.H{
		"units_initialized": s.runtime.UnitsInitialized(),
		"threads":           s.runtime.ThreadCount(),
		"observers":         s.runtime.ObserverCount(),
		"tools":             s.runtime.ToolNames(),
	}
	if tech := db.Tech(); tech != nil {
		out["tech"] = gin.H{"name": tech.Name, "dbu_per_micron": tech.DbUnitsPerMicron, "layers": len(tech.Layers)}
	}
	libs := make([]gin.H, 0, len(db.Libs()))
	for _, lib := range db.Libs() {
		libs = append(libs, gin.H{"name": lib.Name, "masters": len(lib.Masters)})
	}
	out["libs"] = libs
	if block := db.Block(); block != nil {
		out["block"] = gin.H{
			"name":  block.Name,
			"insts": len(block.Insts),
			"nets":  len(block.Nets),
			"pins":  len(block.BTerms),
			"core":  s.runtime.Core(),
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) handleReadLef(c *gin.Context) {
	var req ReadLefRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "read_lef", s.runtime.ReadLef(req.File, req.Lib, boolOr(req.Tech, true), boolOr(req.Library, true)))
}

func (s *Server) handleReadDef(c *gin.Context) {
	var req ReadDefRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "read_def", s.runtime.ReadDef(req.File, req.ContinueOnErrors, req.FloorplanInit, req.Incremental))
}

func (s *Server) handleReadVerilog(c *gin.Context) {
	var req FileRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "read_verilog", s.runtime.ReadVerilog(req.File))
}

func (s *Server) handleLinkDesign(c *gin.Context) {
	var req LinkRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "link_design", s.runtime.LinkDesign(req.Top))
}

func (s *Server) handleWriteLef(c *gin.Context) {
	var req FileRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "write_lef", s.runtime.WriteLef(req.File))
}

func (s *Server) handleWriteDef(c *gin.Context) {
	var req WriteDefRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Version == "" {
		req.Version = "5.8"
	}
	s.respond(c, "write_def", s.runtime.WriteDef(req.File, req.Version))
}

func (s *Server) handleWriteCdl(c *gin.Context) {
	var req WriteCdlRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "write_cdl", s.runtime.WriteCdl(req.File, req.Masters, req.IncludeFillers))
}

func (s *Server) handleReadDb(c *gin.Context) {
	var req FileRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "read_db", s.runtime.ReadDb(c.Request.Context(), req.File))
}

func (s *Server) handleWriteDb(c *gin.Context) {
	var req FileRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "write_db", s.runtime.WriteDb(c.Request.Context(), req.File))
}

func (s *Server) handleDiffDbs(c *gin.Context) {
	var req DiffRequest
	if !s.bind(c, &req) {
		return
	}
	s.respond(c, "diff_dbs", s.runtime.DiffDbs(c.Request.Context(), req.A, req.B, req.Report))
}

func (s *Server) handleGetThreads(c *gin.Context) {
	if !s.ready(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"threads": s.runtime.ThreadCount()}})
}

func (s *Server) handleSetThreads(c *gin.Context) {
	var req ThreadsRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.runtime.SetThreadCountString(req.Count, false); err != nil {
		s.writeError(c, "set_thread_count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"threads": s.runtime.ThreadCount()}})
}

// handleListWorkers reports the pool of every parallel tool
func (s *Server) handleListWorkers(c *gin.Context) {
	if !s.ready(c) {
		return
	}

	statuses := s.runtime.Health().GetStatus()
	data := make([]gin.H, 0, len(statuses))
	for _, st := range statuses {
		data = append(data, gin.H{
			"pool":    st.Pool,
			"total":   st.TotalWorkers,
			"idle":    st.IdleWorkers,
			"busy":    st.BusyWorkers,
			"stopped": st.StoppedWorkers,
			"healthy": st.Healthy,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalysis runs the quick design checks of the placement and
// routing tools on the current block
func (s *Server) handleAnalysis(c *gin.Context) {
	if !s.ready(c) {
		return
	}
	if s.runtime.Db().Block() == nil {
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{
			Error: ErrorDetail{Code: "NO_DESIGN", Message: "no design loaded"},
		})
		return
	}

	ctx := c.Request.Context()
	wirelength, err := s.runtime.GlobalRouter().EstimateWirelength(ctx)
	if err != nil {
		s.writeError(c, "analysis", err)
		return
	}
	violations, err := s.runtime.Opendp().CheckPlacement(ctx)
	if err != nil {
		s.writeError(c, "analysis", err)
		return
	}
	floating, err := s.runtime.AntennaChecker().FloatingNets(ctx)
	if err != nil {
		s.writeError(c, "analysis", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"wirelength":           wirelength,
		"placement_violations": violations,
		"floating_nets":        floating,
		"unplaced_pins":        s.runtime.IOPlacer().UnplacedPins(),
		"design_area":          s.runtime.Resizer().DesignArea(),
		"fillers":              s.runtime.Finale().FillerCount(),
	}})
}

// ready rejects requests made before Init or after Close
func (s *Server) ready(c *gin.Context) bool {
	if s.runtime != nil && s.runtime.Initialized() {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: ErrorDetail{Code: "RUNTIME_NOT_READY", Message: "runtime is not initialized"},
	})
	return false
}

func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if !s.ready(c) {
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return false
	}
	return true
}

func (s *Server) respond(c *gin.Context, op string, err error) {
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"op": op, "status": "ok"}})
}

func (s *Server) writeError(c *gin.Context, op string, err error) {
	code, status := errorStatus(err)
	s.logger.Warn("operation failed",
		zap.String("op", op),
		zap.String("code", code),
		zap.Error(err))
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error(), Details: gin.H{"op": op}},
	})
}

// errorStatus maps the runtime error classes onto HTTP
func errorStatus(err error) (string, int) {
	switch {
	case errors.Is(err, orchestrator.ErrLifecycleViolation):
		return "LIFECYCLE_VIOLATION", http.StatusConflict
	case errors.Is(err, orchestrator.ErrPreconditionFailure):
		return "PRECONDITION_FAILED", http.StatusPreconditionFailed
	case errors.Is(err, orchestrator.ErrFormat):
		return "FORMAT_ERROR", http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ports.ErrNotFound):
		return "NOT_FOUND", http.StatusNotFound
	case errors.Is(err, orchestrator.ErrResource):
		return "RESOURCE_ERROR", http.StatusServiceUnavailable
	default:
		return "INTERNAL_ERROR", http.StatusInternalServerError
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
