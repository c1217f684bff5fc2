package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/landuse-contracts/internal/model"
	"github.com/nurpe/landuse-contracts/internal/numbering"
	"github.com/nurpe/landuse-contracts/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	contracts *service.ContractService
	ping      func(context.Context) error
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, ping func(context.Context) error, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, ping: ping, log: log}
}

func (h *Handler) Register(router *gin.Engine) {
	router.GET("/healthz", h.health)
	router.GET("/wards", h.listWards)

	contracts := router.Group("/contracts")
	contracts.POST("", h.createContract)
	contracts.GET("", h.listContracts)
	contracts.GET("/:id", h.getContract)
	contracts.PUT("/:id", h.updateContract)
	contracts.POST("/:id/liquidate", h.liquidateContract)
	contracts.POST("/:id/cancel-liquidation", h.cancelLiquidation)
	contracts.POST("/:id/cancel", h.cancelContract)
	contracts.GET("/:id/history", h.getHistory)
	contracts.GET("/:id/liquidations", h.listLiquidations)
}

type contractRequest struct {
	Ward        string `json:"ward"`
	OwnerName   string `json:"owner_name" binding:"required"`
	SheetNumber string `json:"sheet_number" binding:"required"`
	PlotNumber  string `json:"plot_number" binding:"required"`
	IsBranch    bool   `json:"is_branch"`
	Notes       string `json:"notes"`
}

// validate requires a ward for contracts numbered by ward. Branch contracts
// use the branch code instead.
func (r contractRequest) validate() error {
	if !r.IsBranch && strings.TrimSpace(r.Ward) == "" {
		return errors.New("ward is required unless is_branch is set")
	}
	return nil
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) createContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), service.CreateContractInput{
		Ward:           req.Ward,
		OwnerName:      req.OwnerName,
		SheetNumber:    req.SheetNumber,
		PlotNumber:     req.PlotNumber,
		IsBranch:       req.IsBranch,
		Notes:          req.Notes,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toContractResponse(*contract))
}

func (h *Handler) listContracts(c *gin.Context) {
	filter := model.ContractFilter{Search: c.Query("q")}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.ContractStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	if raw, ok := c.GetQuery("ward"); ok && strings.TrimSpace(raw) != "" {
		filter.Ward = &raw
	}

	var err error
	if filter.Limit, err = parseInt(c.Query("limit")); err != nil {
		respondError(c, http.StatusBadRequest, "validation", "invalid limit")
		return
	}
	if filter.Offset, err = parseInt(c.Query("offset")); err != nil {
		respondError(c, http.StatusBadRequest, "validation", "invalid offset")
		return
	}

	page, err := h.contracts.ListContractDetailsViews(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]detailsViewResponse, 0, len(page.Items))
	for _, view := range page.Items {
		items = append(items, toDetailsViewResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": page.Total,
	})
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	view, err := h.contracts.GetContractDetailsView(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDetailsViewResponse(*view))
}

func (h *Handler) updateContract(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}

	err := h.contracts.UpdateContractDetails(c.Request.Context(), id, service.UpdateContractDetailsInput{
		Ward:        req.Ward,
		OwnerName:   req.OwnerName,
		SheetNumber: req.SheetNumber,
		PlotNumber:  req.PlotNumber,
		IsBranch:    req.IsBranch,
		Notes:       req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) liquidateContract(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	record, err := h.contracts.LiquidateContract(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toLiquidationResponse(*record))
}

func (h *Handler) cancelLiquidation(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}

	if err := h.contracts.CancelLiquidation(c.Request.Context(), id, req.Reason); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) cancelContract(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}

	if err := h.contracts.CancelContract(c.Request.Context(), id, req.Reason); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) getHistory(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	entries, err := h.contracts.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryEntryResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) listLiquidations(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	records, err := h.contracts.ListLiquidations(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]liquidationResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toLiquidationResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) listWards(c *gin.Context) {
	wards := numbering.Wards()
	out := make([]gin.H, 0, len(wards))
	for _, w := range wards {
		out = append(out, gin.H{"name": w.Name, "code": w.Code})
	}
	c.JSON(http.StatusOK, gin.H{
		"items":         out,
		"branch_code":   numbering.BranchCode,
		"fallback_code": numbering.FallbackCode,
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Msg("health check failed")
			respondError(c, http.StatusServiceUnavailable, "unavailable", "storage unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrInvalidState):
		respondError(c, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "conflict", "identifier conflict, retry the request")
	case errors.Is(err, service.ErrUnavailable):
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("storage unavailable")
		respondError(c, http.StatusServiceUnavailable, "unavailable", "storage unavailable")
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		respondError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

func contractID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation", "invalid contract id")
		return uuid.Nil, false
	}
	return id, true
}

func parseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
