package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/ai"
	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/http/middleware"
	"github.com/nurpe/minefleet-dispatch/internal/model"
	"github.com/nurpe/minefleet-dispatch/internal/reconcile"
	"github.com/nurpe/minefleet-dispatch/internal/repository"
	"github.com/nurpe/minefleet-dispatch/internal/service"
)

type Handler struct {
	dispatch   *service.DispatchService
	strategies *service.StrategyService
	reports    *service.ReportService
	log        zerolog.Logger
}

func NewHandler(dispatch *service.DispatchService, strategies *service.StrategyService, reports *service.ReportService, log zerolog.Logger) *Handler {
	return &Handler{dispatch: dispatch, strategies: strategies, reports: reports, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/sessions", h.openSession)
	protected.GET("/sessions/:id", h.getSession)
	protected.DELETE("/sessions/:id", h.closeSession)
	protected.PUT("/sessions/:id/header", h.updateHeader)
	protected.GET("/sessions/:id/eligibility", h.eligibility)
	protected.POST("/sessions/:id/items", h.addItem)
	protected.POST("/sessions/:id/items/existing", h.addExisting)
	protected.PATCH("/sessions/:id/items/:tempId", h.updateItem)
	protected.DELETE("/sessions/:id/items/:tempId", h.removeItem)
	protected.POST("/sessions/:id/submit", h.submit)

	protected.GET("/submissions", h.listSubmissions)
	protected.GET("/submissions/:id", h.getSubmission)
	protected.GET("/submissions/:id/achievement", h.submissionAchievement)
	protected.GET("/submissions/:id/export", h.exportSubmission)
	protected.GET("/submissions/:id/export/pdf", h.exportSubmissionPDF)

	protected.POST("/ai/recommendations", h.recommendations)
	protected.POST("/ai/strategies/select", h.selectStrategy)
	protected.POST("/ai/strategies/open", h.openStrategy)
	protected.POST("/ai/strategies/apply", h.applyStrategy)
	protected.POST("/ai/chatbot", h.chatbot)
	protected.GET("/ai/status", h.aiStatus)
}

type openSessionRequest struct {
	MiningSiteID string  `json:"miningSiteId"`
	Shift        string  `json:"shift"`
	RecordDate   string  `json:"recordDate"`
	TotalTarget  float64 `json:"totalTarget"`
	Remarks      string  `json:"remarks"`
	ProductionID string  `json:"productionId"`
}

func (h *Handler) openSession(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.OpenSessionInput{
		Principal:    principal,
		MiningSiteID: req.MiningSiteID,
		TotalTarget:  req.TotalTarget,
		Remarks:      req.Remarks,
		ProductionID: req.ProductionID,
	}
	if req.Shift != "" {
		shift, ok := model.ParseShift(req.Shift)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift"})
			return
		}
		input.Shift = shift
	}
	if req.RecordDate != "" {
		date, err := parseDate(req.RecordDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recordDate"})
			return
		}
		input.RecordDate = dayOf(date)
	}

	sess, err := h.dispatch.OpenSession(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sess})
}

func (h *Handler) getSession(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	sess, err := h.dispatch.GetSession(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

func (h *Handler) closeSession(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	if err := h.dispatch.CloseSession(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateHeaderRequest struct {
	MiningSiteID     *string  `json:"miningSiteId"`
	Shift            *string  `json:"shift"`
	RecordDate       *string  `json:"recordDate"`
	TotalTarget      *float64 `json:"totalTarget"`
	ActualProduction *float64 `json:"actualProduction"`
	Remarks          *string  `json:"remarks"`
}

func (h *Handler) updateHeader(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}

	var req updateHeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := service.HeaderUpdate{
		MiningSiteID:     req.MiningSiteID,
		TotalTarget:      req.TotalTarget,
		ActualProduction: req.ActualProduction,
		Remarks:          req.Remarks,
	}
	if req.Shift != nil {
		shift, ok := model.ParseShift(*req.Shift)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift"})
			return
		}
		update.Shift = &shift
	}
	if req.RecordDate != nil {
		date, err := parseDate(*req.RecordDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recordDate"})
			return
		}
		date = dayOf(date)
		update.RecordDate = &date
	}

	sess, err := h.dispatch.UpdateHeader(c.Request.Context(), principal, id, update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

func (h *Handler) eligibility(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	pools, err := h.dispatch.Eligibility(c.Request.Context(), principal, id, strings.TrimSpace(c.Query("item")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"trucks":                    pools.Trucks,
		"excavators":                pools.Excavators,
		"truckOperators":            pools.TruckOperators,
		"excavatorOperators":        pools.ExcavatorOperators,
		"truckOperatorFallback":     pools.TruckOperatorFallback,
		"excavatorOperatorFallback": pools.ExcavatorOperatorFallback,
	}})
}

func (h *Handler) addItem(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	sess, item, err := h.dispatch.AddItem(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"session": sess, "item": item}})
}

type addExistingRequest struct {
	ActivityIDs []string `json:"activityIds" binding:"required"`
}

func (h *Handler) addExisting(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}

	var req addExistingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.dispatch.AddExisting(c.Request.Context(), principal, id, req.ActivityIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

type updateItemRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (h *Handler) updateItem(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.dispatch.UpdateItem(c.Request.Context(), principal, id, c.Param("tempId"), draft.Field(strings.TrimSpace(req.Field)), req.Value)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

func (h *Handler) removeItem(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	sess, err := h.dispatch.RemoveItem(c.Request.Context(), principal, id, c.Param("tempId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sess})
}

// submit answers with the run result even when the run failed part way, so the
// dispatcher can see which items reached the backend.
func (h *Handler) submit(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	result, err := h.dispatch.Submit(c.Request.Context(), principal, id)
	if err != nil {
		if result != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "data": result})
			return
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *Handler) listSubmissions(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	filter := repository.SubmissionFilter{
		UserID:       strings.TrimSpace(c.Query("userId")),
		MiningSiteID: strings.TrimSpace(c.Query("miningSiteId")),
	}
	if raw := c.Query("shift"); raw != "" {
		shift, ok := model.ParseShift(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift"})
			return
		}
		filter.Shift = shift
	}
	if raw := c.Query("status"); raw != "" {
		status, err := parseSubmissionStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		filter.To = &to
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	subs, err := h.dispatch.ListSubmissions(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (h *Handler) getSubmission(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	sub, err := h.dispatch.GetSubmission(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (h *Handler) submissionAchievement(c *gin.Context) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	achievement, err := h.dispatch.Achievement(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": achievement})
}

func (h *Handler) exportSubmission(c *gin.Context) {
	h.export(c, service.ReportXLSX)
}

func (h *Handler) exportSubmissionPDF(c *gin.Context) {
	h.export(c, service.ReportPDF)
}

func (h *Handler) export(c *gin.Context, format service.ReportFormat) {
	principal, id, ok := h.idRequest(c)
	if !ok {
		return
	}
	file, err := h.reports.SubmissionReport(c.Request.Context(), principal, id, format)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+file.FileName+"\"")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *Handler) recommendations(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req backend.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recs, err := h.strategies.Recommend(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs})
}

func (h *Handler) selectStrategy(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var strategy ai.Strategy
	if err := c.ShouldBindJSON(&strategy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.strategies.Select(c.Request.Context(), principal, strategy); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type openStrategyRequest struct {
	MiningSiteID string `json:"miningSiteId"`
}

func (h *Handler) openStrategy(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req openStrategyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sess, err := h.strategies.OpenFromSelected(c.Request.Context(), principal, req.MiningSiteID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sess})
}

type applyStrategyRequest struct {
	backend.ApplyRequest
	SessionID string `json:"sessionId"`
}

func (h *Handler) applyStrategy(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req applyStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sessionID *uuid.UUID
	if raw := strings.TrimSpace(req.SessionID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sessionId"})
			return
		}
		sessionID = &id
	}
	req.Action = backend.ApplyAction(strings.ToLower(strings.TrimSpace(string(req.Action))))

	out, err := h.strategies.Apply(c.Request.Context(), principal, sessionID, req.ApplyRequest)
	if err != nil {
		if out != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "data": out})
			return
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *Handler) chatbot(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req backend.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.strategies.Chat(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": answer})
}

func (h *Handler) aiStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.strategies.Status()})
}

func mustPrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) idRequest(c *gin.Context) (model.Principal, uuid.UUID, bool) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return principal, uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return principal, uuid.Nil, false
	}
	return principal, id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var validation *reconcile.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "problems": validation.Problems})
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrUpstream):
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func statusFor(err error) int {
	var validation *reconcile.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseSubmissionStatus(raw string) (model.SubmissionStatus, error) {
	switch status := model.SubmissionStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case model.SubmissionSucceeded, model.SubmissionPartial, model.SubmissionFailed:
		return status, nil
	default:
		return "", service.ErrInvalidInput
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
