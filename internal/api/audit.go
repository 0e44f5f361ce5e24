package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nerrad567/voicebridge/internal/audit"
	"github.com/nerrad567/voicebridge/internal/exposure"
)

// auditChanSize buffers audit writes away from the request path; when
// the buffer is full the entry is dropped rather than the request held.
const auditChanSize = 256

// auditLog enqueues an entry for the drain goroutine, best-effort.
func (s *Server) auditLog(action string, assistant exposure.Assistant, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.Entry{
		Action:    action,
		Assistant: string(assistant),
		Source:    "api",
		Details:   details,
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit log channel full, dropping entry",
			"action", action,
			"assistant", string(assistant),
		)
	}
}

// recordMutation audits a configuration mutation and announces it on the
// event bus. Operations with a dedicated event topic (artifact writes,
// bridge syncs) use auditLog directly instead.
func (s *Server) recordMutation(action string, assistant exposure.Assistant, details map[string]any) {
	s.auditLog(action, assistant, details)

	if s.mqtt != nil {
		if err := s.mqtt.PublishConfigChanged(action, string(assistant)); err != nil {
			s.logger.Warn("config change announcement failed", "action", action, "error", err)
		}
	}
}

// drainAuditLog is the single writer behind the audit channel. One
// goroutine keeps inserts serial, which suits SQLite; on shutdown it
// flushes whatever is still queued before returning.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAuditEntry(entry)
		case <-ctx.Done():
			s.flushAuditQueue()
			return
		}
	}
}

// flushAuditQueue empties the channel without blocking. Entries arriving
// after the flush loop observes an empty channel are lost, which is
// acceptable because shutdown has already stopped the HTTP listener.
func (s *Server) flushAuditQueue() {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAuditEntry(entry)
		default:
			return
		}
	}
}

// writeAuditEntry persists one entry. The background context is
// deliberate: shutdown must not abort writes already accepted.
func (s *Server) writeAuditEntry(entry *audit.Entry) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"error", err,
		)
	}
}

// auditFilterFromQuery maps list query parameters onto a repository
// filter. Unparseable limit and offset values fall back to the
// repository defaults instead of erroring.
func auditFilterFromQuery(q url.Values) audit.Filter {
	filter := audit.Filter{
		Action:    q.Get("action"),
		Assistant: q.Get("assistant"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	return filter
}

// handleListAuditLogs returns paginated audit entries with optional filters.
//
// Query parameters:
//   - action: filter by command name (set_mode, bulk_update, sync_push, ...)
//   - assistant: filter by targeted assistant
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit log is not configured on this server")
		return
	}

	result, err := s.auditRepo.List(r.Context(), auditFilterFromQuery(r.URL.Query()))
	if err != nil {
		s.logger.Error("audit log query failed", "error", err)
		writeInternalError(w, "listing the audit log failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
