package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"telehealth-server/internal/models"
	"telehealth-server/internal/utils"
)

// DoctorLister lists doctors that accept bookings.
type DoctorLister interface {
	ActiveDoctors(ctx context.Context) ([]models.DoctorSummary, error)
}

// UserHandler serves user directory lookups.
type UserHandler struct {
	Directory DoctorLister
}

func NewUserHandler(directory DoctorLister) *UserHandler {
	return &UserHandler{Directory: directory}
}

// GetDoctors lists active doctors so patients can pick one to book.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Directory.ActiveDoctors(c.Request.Context())
	if err != nil {
		utils.RespondError(c, fmt.Errorf("list doctors: %w", err))
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}
