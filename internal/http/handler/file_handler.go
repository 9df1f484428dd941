package handler

import (
	"net/http"

	"github.com/straye-as/labelling-app/internal/mapper"
	"github.com/straye-as/labelling-app/internal/service"
	"go.uber.org/zap"
)

type FileHandler struct {
	service *service.LabellingService
	logger  *zap.Logger
}

func NewFileHandler(labellingService *service.LabellingService, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		service: labellingService,
		logger:  logger,
	}
}

// List godoc
// @Summary List input files
// @Description Labelling input files (.json and .csv) in the storage container root
// @Tags Files
// @Produce json
// @Success 200 {array} domain.InputFileDTO
// @Failure 500 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /files [get]
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.ListInputFiles(r.Context())
	if err != nil {
		h.logger.Error("Failed to list input files", zap.Error(err))
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(mapper.ToInputFileDTOs(names)))
}
