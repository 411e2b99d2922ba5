package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/requestdata"
	"github.com/pathwise/pathwise-backend/internal/services"
)

type ModuleHandler struct {
	svc services.ModuleService
}

func NewModuleHandler(svc services.ModuleService) *ModuleHandler {
	return &ModuleHandler{svc: svc}
}

// GET /api/modules
func (h *ModuleHandler) ListModules(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	listing, err := h.svc.ListModules(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondFromError(c, http.StatusBadGateway, "module_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"modules": listing})
}
