package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/store"
	"telehealth-server/internal/utils"
)

// AppointmentHandler exposes the scheduling service over HTTP.
type AppointmentHandler struct {
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Scheduler: scheduler}
}

type availabilityQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// GetAvailability lists the open slots of a doctor on one day.
func (h *AppointmentHandler) GetAvailability(c *gin.Context) {
	var q availabilityQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	day, err := scheduling.ParseDate(q.Date)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.Scheduler.Availability(c.Request.Context(), c.Param("doctorId"), day)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Availability fetched successfully", result)
}

// BookAppointmentRequest represents the request body for booking a slot.
type BookAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
	TimeSlot string `json:"timeSlot" binding:"required"`
	Reason   string `json:"reason" binding:"required,min=10,max=500"`
}

// BookAppointment books a slot for the authenticated patient.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}
	day, err := scheduling.ParseDate(req.Date)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.Scheduler.Book(c.Request.Context(), scheduling.BookingRequest{
		PatientID: requester.ID,
		DoctorID:  req.DoctorID,
		Date:      day,
		TimeSlot:  req.TimeSlot,
		Reason:    req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedWithWarning(c, "Appointment booked successfully", result.Appointment, result.Notification.Warning)
}

type listQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status"`
	Upcoming bool   `form:"upcoming"`
	Date     string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (q listQuery) filter() store.ListFilter {
	return store.ListFilter{
		Status: models.AppointmentStatus(q.Status),
		Page:   q.Page,
		Limit:  q.Limit,
	}
}

// GetPatientAppointments lists the authenticated patient's appointments.
// upcoming=true hides appointments before today.
func (h *AppointmentHandler) GetPatientAppointments(c *gin.Context) {
	var q listQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	f := q.filter()
	if q.Upcoming {
		today := h.Scheduler.Today()
		f.From = &today
	}

	page, err := h.Scheduler.ListForPatient(c.Request.Context(), requester.ID, f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", page)
}

// GetDoctorAppointments lists appointments booked with the authenticated
// doctor, optionally for a single day.
func (h *AppointmentHandler) GetDoctorAppointments(c *gin.Context) {
	var q listQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	f := q.filter()
	if q.Date != "" {
		day, err := scheduling.ParseDate(q.Date)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		f.Day = &day
	}

	page, err := h.Scheduler.ListForDoctor(c.Request.Context(), requester.ID, f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", page)
}

// GetAppointmentByID returns one appointment to the patient or doctor on it.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}
	appt, err := h.Scheduler.Get(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// CancelAppointmentRequest is optional; an empty body cancels without a reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelAppointment cancels an appointment on behalf of its patient or doctor.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	result, err := h.Scheduler.Cancel(c.Request.Context(), scheduling.CancelRequest{
		AppointmentID: c.Param("id"),
		Requester:     requester,
		Reason:        req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithWarning(c, "Appointment cancelled successfully", result.Appointment, result.Notification.Warning)
}

// UpdateAppointmentRequest carries the doctor-editable fields. Omitted
// fields are left as they are.
type UpdateAppointmentRequest struct {
	Status           *string `json:"status"`
	Notes            *string `json:"notes" binding:"omitempty,max=1000"`
	Diagnosis        *string `json:"diagnosis" binding:"omitempty,max=1000"`
	Prescription     *string `json:"prescription" binding:"omitempty,max=1000"`
	FollowUpRequired *bool   `json:"followUpRequired"`
	FollowUpDate     *string `json:"followUpDate" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateAppointment lets the appointment's doctor record its outcome.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	upd := scheduling.ClinicalUpdate{
		AppointmentID:    c.Param("id"),
		Requester:        requester,
		Notes:            req.Notes,
		Diagnosis:        req.Diagnosis,
		Prescription:     req.Prescription,
		FollowUpRequired: req.FollowUpRequired,
	}
	if req.Status != nil {
		status := models.AppointmentStatus(*req.Status)
		upd.Status = &status
	}
	if req.FollowUpDate != nil {
		d, err := time.Parse(models.DateLayout, *req.FollowUpDate)
		if err != nil {
			utils.BadRequest(c, fmt.Sprintf("Invalid followUpDate: %v", err))
			return
		}
		upd.FollowUpDate = &d
	}

	appt, err := h.Scheduler.UpdateClinical(c.Request.Context(), upd)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appt)
}

func requesterFrom(c *gin.Context) (scheduling.Requester, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	role, roleOK := middleware.GetUserRoleFromContext(c)
	if !ok || !roleOK {
		utils.Error(c, http.StatusUnauthorized, "User not authenticated")
		return scheduling.Requester{}, false
	}
	return scheduling.Requester{ID: userID, Role: role}, true
}
