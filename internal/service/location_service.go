package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/repository"
	"github.com/gabrielsqw/badminton-club/pkg/database"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
)

// ── 地点模块业务错误 ──

var (
	ErrLocationNotFound     = pkgerrors.NotFound("地点不存在")
	ErrLocationNameTaken    = pkgerrors.Conflict("地点名称已存在")
	ErrLocationInUse        = pkgerrors.Conflict("该地点仍有未来的打球意向，无法停用")
	ErrLocationsUnavailable = pkgerrors.Unavailable("地点数据暂时不可用", nil)
)

// LocationService 地点业务接口
type LocationService interface {
	Create(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error)
	GetByID(ctx context.Context, id string) (*dto.LocationResponse, error)
	List(ctx context.Context, req *dto.LocationListRequest) ([]dto.LocationResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error)
	Delete(ctx context.Context, id string) error
}

type locationService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(repo *repository.Repository, logger *zap.Logger) LocationService {
	return &locationService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	loc := &model.Location{
		Name:     req.Name,
		Address:  req.Address,
		IsActive: true,
	}

	if err := s.repo.Location.Create(ctx, loc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLocationNameTaken
		}
		s.logger.Error("创建地点失败", zap.Error(err))
		return nil, err
	}

	return s.toLocationResponse(loc), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *locationService) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
			return nil, ErrLocationNotFound
		}
		s.logger.Error("查询地点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toLocationResponse(loc), nil
}

// ────────────────────── List ──────────────────────

// List 默认仅返回启用的地点，按名称排序；存储不可用时返回空列表与 ErrLocationsUnavailable
func (s *locationService) List(ctx context.Context, req *dto.LocationListRequest) ([]dto.LocationResponse, error) {
	locations, err := s.repo.Location.List(ctx, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出地点失败", zap.Error(err))
		return []dto.LocationResponse{}, pkgerrors.Unavailable(ErrLocationsUnavailable.Msg, err)
	}

	result := make([]dto.LocationResponse, 0, len(locations))
	for i := range locations {
		result = append(result, *s.toLocationResponse(&locations[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, id string, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
			return nil, ErrLocationNotFound
		}
		s.logger.Error("查询地点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.IsActive != nil && !*req.IsActive && loc.IsActive {
		if err := s.ensureNotInUse(ctx, s.repo, id); err != nil {
			return nil, err
		}
	}

	if req.Name != nil {
		loc.Name = *req.Name
	}
	if req.Address != nil {
		loc.Address = *req.Address
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}

	if err := s.repo.Location.Update(ctx, loc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLocationNameTaken
		}
		s.logger.Error("更新地点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toLocationResponse(loc), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软停用；仍被今天及以后的意向引用时拒绝
func (s *locationService) Delete(ctx context.Context, id string) error {
	return s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Location.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
				return ErrLocationNotFound
			}
			s.logger.Error("查询地点失败", zap.String("id", id), zap.Error(err))
			return err
		}

		if err := s.ensureNotInUse(ctx, txRepo, id); err != nil {
			return err
		}

		if err := txRepo.Location.Deactivate(ctx, id); err != nil {
			s.logger.Error("停用地点失败", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
}

// ── 内部辅助方法 ──

func (s *locationService) ensureNotInUse(ctx context.Context, repo *repository.Repository, id string) error {
	count, err := repo.Availability.CountFutureByLocation(ctx, id, today(s.now))
	if err != nil {
		s.logger.Error("统计地点引用失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrLocationInUse
	}
	return nil
}

func (s *locationService) toLocationResponse(loc *model.Location) *dto.LocationResponse {
	return &dto.LocationResponse{
		ID:        loc.LocationID,
		Name:      loc.Name,
		Address:   loc.Address,
		IsActive:  loc.IsActive,
		CreatedAt: loc.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: loc.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
