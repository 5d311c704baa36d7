package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/service"
	"github.com/gabrielsqw/badminton-club/pkg/response"
)

// LocationHandler 地点模块 HTTP 处理器
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListLocations 获取地点列表
// GET /api/v1/locations
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	locations, err := h.locationSvc.List(c.Request.Context(), &req)
	degraded := errors.Is(err, service.ErrLocationsUnavailable)
	if err != nil && !degraded {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": locations, "degraded": degraded})
}

// GetLocation 获取地点详情
// GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, location)
}

// CreateLocation 创建地点
// POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, location)
}

// UpdateLocation 更新地点
// PUT /api/v1/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, location)
}

// DeleteLocation 停用地点
// DELETE /api/v1/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.locationSvc.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
