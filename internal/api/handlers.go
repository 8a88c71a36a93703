// File: internal/api/handlers.go

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"github.com/tinkertool/tinker/api/schemas"
	"go.uber.org/zap"
)

const defaultVisualTolerance = 0.1

// respond writes the envelope. The transport status is always 200; failures
// are reported inside the envelope so clients parse one shape.
func (s *Server) respond(w http.ResponseWriter, resp schemas.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decode parses a JSON body into dst, reporting malformed input to the
// caller through the envelope. Returns false when the handler should stop.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respond(w, schemas.Fail(fmt.Sprintf("invalid request body: %v", err)))
		return false
	}
	return true
}

// queue validates a command and publishes it to the dispatcher. A success
// reply means queued, not completed; outcomes arrive on the event stream.
func (s *Server) queue(w http.ResponseWriter, cmd schemas.Command) {
	if err := cmd.Validate(); err != nil {
		s.respond(w, schemas.Fail(err.Error()))
		return
	}
	s.d.Commands.Publish(cmd)
	s.logger.Debug("Command queued", zap.String("type", string(cmd.Type)))
	s.respond(w, schemas.OK(map[string]interface{}{"queued": true}))
}

// tabID extracts the {id} route parameter.
func tabID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tab id %q", raw)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, schemas.OK(map[string]string{"status": "ok"}))
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, schemas.OK(map[string]interface{}{
		"name":       ServerName,
		"version":    Version,
		"tab_count":  s.d.Tabs.Count(),
		"active_tab": s.d.Tabs.ActiveID(),
		"capabilities": []string{
			"navigation", "tabs", "screenshots", "visual_testing",
			"dom_inspection", "javascript", "network_monitoring",
			"recording", "events",
		},
		"endpoints": []string{
			"/api/navigate", "/api/tabs", "/api/screenshot",
			"/api/visual/baseline", "/api/visual/test",
			"/api/element/find", "/api/element/interact",
			"/api/element/highlight", "/api/element/wait",
			"/api/page/info", "/api/javascript/execute",
			"/api/network/start", "/api/network/stop", "/api/network/stats",
			"/api/network/export", "/api/network/filter",
			"/api/network/clear-filters", "/api/recording/start",
			"/api/recording/stop", "/api/recording/save",
			"/health", "/ws",
		},
	}))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdNavigate, URL: req.URL})
}

type tabSummary struct {
	ID     uint64 `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

func (s *Server) handleListTabs(w http.ResponseWriter, _ *http.Request) {
	active := s.d.Tabs.ActiveID()
	var out []tabSummary
	for _, t := range s.d.Tabs.List() {
		out = append(out, tabSummary{
			ID:     t.ID,
			URL:    t.URL(),
			Title:  t.Title(),
			Active: t.ID == active,
		})
	}
	s.respond(w, schemas.OK(out))
}

func (s *Server) handleCreateTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdCreateTab, URL: req.URL})
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	id, err := tabID(r)
	if err != nil {
		s.respond(w, schemas.Fail(err.Error()))
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdCloseTab, TabID: id})
}

func (s *Server) handleActivateTab(w http.ResponseWriter, r *http.Request) {
	id, err := tabID(r)
	if err != nil {
		s.respond(w, schemas.Fail(err.Error()))
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdSwitchTab, TabID: id})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Options *schemas.ScreenshotOptions `json:"options"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdTakeScreenshot, Options: req.Options})
}

func (s *Server) handleCreateBaseline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TestName string                     `json:"test_name"`
		Options  *schemas.ScreenshotOptions `json:"options"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{
		Type:     schemas.CmdCreateBaseline,
		TestName: req.TestName,
		Options:  req.Options,
	})
}

func (s *Server) handleVisualTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TestName  string                     `json:"test_name"`
		Tolerance *float64                   `json:"tolerance"`
		Options   *schemas.ScreenshotOptions `json:"options"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	tolerance := defaultVisualTolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	s.queue(w, schemas.Command{
		Type:      schemas.CmdRunVisualTest,
		TestName:  req.TestName,
		Tolerance: tolerance,
		Options:   req.Options,
	})
}

func (s *Server) handleFindElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selector *schemas.ElementSelector `json:"selector"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdFindElement, Selector: req.Selector})
}

func (s *Server) handleInteractElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selector    *schemas.ElementSelector `json:"selector"`
		Interaction *schemas.Interaction     `json:"interaction"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{
		Type:        schemas.CmdInteractElement,
		Selector:    req.Selector,
		Interaction: req.Interaction,
	})
}

func (s *Server) handleHighlightElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selector *schemas.ElementSelector `json:"selector"`
		Color    string                   `json:"color"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{
		Type:     schemas.CmdHighlightElement,
		Selector: req.Selector,
		Color:    req.Color,
	})
}

func (s *Server) handleWaitForCondition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Condition *schemas.WaitCondition `json:"condition"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdWaitForCondition, Condition: req.Condition})
}

func (s *Server) handlePageInfo(w http.ResponseWriter, _ *http.Request) {
	s.queue(w, schemas.Command{Type: schemas.CmdGetPageInfo})
}

func (s *Server) handleExecuteJavaScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script string `json:"script"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdExecuteJavaScript, Script: req.Script})
}

func (s *Server) handleNetworkStart(w http.ResponseWriter, _ *http.Request) {
	s.queue(w, schemas.Command{Type: schemas.CmdStartNetworkMonitoring})
}

func (s *Server) handleNetworkStop(w http.ResponseWriter, _ *http.Request) {
	s.queue(w, schemas.Command{Type: schemas.CmdStopNetworkMonitoring})
}

// handleNetworkStats serves the statistics snapshot directly; the monitor is
// safe for concurrent reads so no round trip through the dispatcher is needed.
func (s *Server) handleNetworkStats(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, schemas.OK(s.d.Network.Stats()))
}

func (s *Server) handleNetworkExport(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, schemas.OK(s.d.Network.ExportHAR()))
}

func (s *Server) handleNetworkFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter *schemas.NetworkFilter `json:"filter"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.queue(w, schemas.Command{Type: schemas.CmdAddNetworkFilter, Filter: req.Filter})
}

func (s *Server) handleNetworkClearFilters(w http.ResponseWriter, _ *http.Request) {
	s.queue(w, schemas.Command{Type: schemas.CmdClearNetworkFilters})
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, _ *http.Request) {
	if s.d.Recorder == nil {
		s.respond(w, schemas.Fail("recording is not enabled"))
		return
	}
	s.d.Recorder.Start()
	s.respond(w, schemas.OK(map[string]string{"session_id": s.d.Recorder.SessionID()}))
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, _ *http.Request) {
	if s.d.Recorder == nil {
		s.respond(w, schemas.Fail("recording is not enabled"))
		return
	}
	s.d.Recorder.Stop()
	s.respond(w, schemas.OK(map[string]interface{}{
		"session_id": s.d.Recorder.SessionID(),
		"events":     len(s.d.Recorder.Events()),
	}))
}

func (s *Server) handleRecordingSave(w http.ResponseWriter, r *http.Request) {
	if s.d.Recorder == nil {
		s.respond(w, schemas.Fail("recording is not enabled"))
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respond(w, schemas.Fail("path is required"))
		return
	}
	if err := s.d.Recorder.Save(req.Path); err != nil {
		s.respond(w, schemas.Fail(err.Error()))
		return
	}
	s.respond(w, schemas.OK(map[string]string{"path": req.Path}))
}
