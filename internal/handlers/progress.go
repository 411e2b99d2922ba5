package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/progression"
	"github.com/pathwise/pathwise-backend/internal/requestdata"
	"github.com/pathwise/pathwise-backend/internal/services"
	"github.com/pathwise/pathwise-backend/internal/session"
)

type ProgressHandler struct {
	log      *logger.Logger
	modules  services.ModuleService
	progress services.ProgressService
}

func NewProgressHandler(log *logger.Logger, modules services.ModuleService, progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:      log.With("handler", "ProgressHandler"),
		modules:  modules,
		progress: progress,
	}
}

func (h *ProgressHandler) openSession(c *gin.Context) (*session.Session, uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, uuid.Nil, false
	}
	moduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return nil, uuid.Nil, false
	}

	locked, reason, err := h.modules.ModuleLocked(c.Request.Context(), rd.UserID, moduleID)
	if err != nil {
		h.log.Warn("module lock check failed, continuing without it", "module_id", moduleID, "error", err)
	} else if locked {
		c.JSON(http.StatusForbidden, gin.H{"locked": true, "reason": reason})
		return nil, uuid.Nil, false
	}

	sess, err := h.progress.Open(c.Request.Context(), rd.UserID, moduleID)
	if err != nil {
		RespondFromError(c, http.StatusBadGateway, "module_load_failed", err)
		return nil, uuid.Nil, false
	}
	return sess, moduleID, true
}

// GET /api/modules/:id
func (h *ProgressHandler) GetModuleDetail(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}

	idx := sess.Tree()
	completion := sess.Completion()
	access := sess.Access()

	accessibleLessons := []uuid.UUID{}
	accessibleChapters := []uuid.UUID{}
	m := idx.Module()
	for li := range m.Lessons {
		lesson := &m.Lessons[li]
		if access.CanOpenLesson(lesson.ID) {
			accessibleLessons = append(accessibleLessons, lesson.ID)
		}
		for ci := range lesson.Chapters {
			if access.CanOpenChapter(lesson.ID, lesson.Chapters[ci].ID) {
				accessibleChapters = append(accessibleChapters, lesson.Chapters[ci].ID)
			}
		}
	}

	RespondOK(c, gin.H{
		"module":              m,
		"record":              sess.Record(),
		"completion":          completion,
		"resume":              sess.Resume(),
		"accessible_lessons":  accessibleLessons,
		"accessible_chapters": accessibleChapters,
	})
}

// POST /api/modules/:id/start
func (h *ProgressHandler) StartModule(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}
	if err := sess.Start(c.Request.Context()); err != nil {
		RespondFromError(c, http.StatusBadGateway, "module_start_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"record":     sess.Record(),
		"completion": sess.Completion(),
		"resume":     sess.Resume(),
	})
}

type navigateRequest struct {
	LessonID  uuid.UUID `json:"lesson_id" binding:"required"`
	ChapterID uuid.UUID `json:"chapter_id" binding:"required"`
}

// POST /api/modules/:id/navigate
func (h *ProgressHandler) Navigate(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	err := sess.Navigate(c.Request.Context(), req.LessonID, req.ChapterID)
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrLocked):
		c.JSON(http.StatusForbidden, gin.H{"locked": true, "reason": progression.LockedContentMessage})
		return
	case errors.Is(err, pkgerrors.ErrInconsistentData):
		RespondError(c, http.StatusNotFound, "chapter_not_found", err)
		return
	default:
		RespondFromError(c, http.StatusBadGateway, "navigate_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"record":     sess.Record(),
		"completion": sess.Completion(),
	})
}

// POST /api/modules/:id/chapters/:chapterID/complete
func (h *ProgressHandler) CompleteChapter(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}
	chapterID, err := uuid.Parse(c.Param("chapterID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}

	gate, err := sess.CompleteChapter(c.Request.Context(), chapterID)
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrGateIncomplete):
		// Surface the specific incomplete titles, not a generic error.
		var incomplete []string
		if gate != nil {
			incomplete = gate.Incomplete
		}
		c.JSON(http.StatusConflict, gin.H{
			"completed":  false,
			"incomplete": incomplete,
		})
		return
	case errors.Is(err, pkgerrors.ErrInconsistentData):
		RespondError(c, http.StatusNotFound, "chapter_not_found", err)
		return
	default:
		RespondFromError(c, http.StatusBadGateway, "complete_failed", err)
		return
	}

	resp := gin.H{
		"record":     sess.Record(),
		"completion": sess.Completion(),
	}
	if gate != nil {
		resp["gate"] = gate
	}
	RespondOK(c, resp)
}

// GET /api/modules/:id/gate
func (h *ProgressHandler) GetGate(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}
	gate, err := sess.Gate(c.Request.Context())
	if err != nil {
		RespondFromError(c, http.StatusBadGateway, "gate_check_failed", err)
		return
	}
	RespondOK(c, gate)
}

// POST /api/modules/:id/refresh
//
// Re-fetches the authoritative record and completion data. With ?wait=false
// the refresh is scheduled and the current (possibly stale) view returns
// immediately.
func (h *ProgressHandler) RefreshSession(c *gin.Context) {
	sess, _, ok := h.openSession(c)
	if !ok {
		return
	}
	if c.Query("wait") == "false" {
		sess.Invalidate()
		RespondOK(c, gin.H{
			"scheduled":  true,
			"record":     sess.Record(),
			"completion": sess.Completion(),
		})
		return
	}
	if err := sess.Refresh(c.Request.Context()); err != nil {
		RespondFromError(c, http.StatusBadGateway, "refresh_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"record":     sess.Record(),
		"completion": sess.Completion(),
		"resume":     sess.Resume(),
	})
}

// GET /api/progress/snapshots
func (h *ProgressHandler) ListSnapshots(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	rows, err := h.progress.Snapshots(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondFromError(c, http.StatusInternalServerError, "snapshot_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"snapshots": rows})
}

// GET /api/modules/:id/snapshot
func (h *ProgressHandler) GetSnapshot(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	moduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	row, err := h.progress.Snapshot(c.Request.Context(), rd.UserID, moduleID)
	if err != nil {
		RespondFromError(c, http.StatusInternalServerError, "snapshot_fetch_failed", err)
		return
	}
	if row == nil {
		RespondError(c, http.StatusNotFound, "snapshot_not_found", nil)
		return
	}
	RespondOK(c, row)
}

// DELETE /api/modules/:id/session
func (h *ProgressHandler) CloseSession(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	moduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	if c.Query("purge") == "true" {
		if err := h.progress.Purge(c.Request.Context(), rd.UserID, moduleID); err != nil {
			RespondFromError(c, http.StatusInternalServerError, "session_purge_failed", err)
			return
		}
		RespondOK(c, gin.H{"closed": true, "purged": true})
		return
	}
	h.progress.Close(rd.UserID, moduleID)
	RespondOK(c, gin.H{"closed": true})
}
