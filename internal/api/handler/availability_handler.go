package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/service"
	"github.com/gabrielsqw/badminton-club/pkg/response"
)

const icsContentType = "text/calendar; charset=utf-8"

// AvailabilityHandler 打球意向 HTTP 处理器
// 读接口在存储不可用时返回 200 + degraded=true 的空结果
type AvailabilityHandler struct {
	availabilitySvc   service.AvailabilityService
	recommendationSvc service.RecommendationService
	upcomingDays      int // 未指定 days 时的默认窗口
	logger            *zap.Logger
	now               func() time.Time
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(
	availabilitySvc service.AvailabilityService,
	recommendationSvc service.RecommendationService,
	upcomingDays int,
	logger *zap.Logger,
) *AvailabilityHandler {
	if upcomingDays <= 0 {
		upcomingDays = service.DefaultUpcomingDays
	}
	return &AvailabilityHandler{
		availabilitySvc:   availabilitySvc,
		recommendationSvc: recommendationSvc,
		upcomingDays:      upcomingDays,
		logger:            logger,
		now:               time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// 公共视图
// ═══════════════════════════════════════════════════════════

// ListTimeSlots 固定时间段列表
// GET /api/v1/time-slots
func (h *AvailabilityHandler) ListTimeSlots(c *gin.Context) {
	response.OK(c, gin.H{"list": model.TimeSlots})
}

// GetPeriod 计算两周周期窗口
// GET /api/v1/periods?date=YYYY-MM-DD&direction=prev|next
func (h *AvailabilityHandler) GetPeriod(c *gin.Context) {
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	ref := h.refDate(q.Date)
	dir, err := service.ParseOptionalDirection(q.Direction)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, toPeriodResponse(service.ResolvePeriod(ref, dir)))
}

// Calendar 两周日历（每日兴趣人数）
// GET /api/v1/availability/calendar?start=YYYY-MM-DD&direction=prev|next
func (h *AvailabilityHandler) Calendar(c *gin.Context) {
	var q dto.CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	dir, err := service.ParseOptionalDirection(q.Direction)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	cal, err := h.availabilitySvc.Calendar(c.Request.Context(), h.refDate(q.Start), dir)
	degraded, ok := h.checkDegraded(c, err)
	if !ok {
		return
	}

	resp := dto.CalendarResponse{
		Period:   toPeriodResponse(cal.Period),
		Days:     make([]dto.CalendarDayResponse, 0, len(cal.Days)),
		Degraded: degraded,
	}
	for _, d := range cal.Days {
		resp.Days = append(resp.Days, dto.CalendarDayResponse{
			Date:     model.FormatDate(d.Date),
			Weekday:  service.WeekdayShort(d.Date),
			Interest: d.Interest,
			IsToday:  d.IsToday,
		})
	}
	response.OK(c, resp)
}

// Summary 日期 → 兴趣人数
// GET /api/v1/availability/summary?start=&end=
func (h *AvailabilityHandler) Summary(c *gin.Context) {
	var q dto.SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	start, _ := model.ParseDate(q.Start)
	end, _ := model.ParseDate(q.End)

	summary, err := h.availabilitySvc.Summarize(c.Request.Context(), start, end)
	degraded, ok := h.checkDegraded(c, err)
	if !ok {
		return
	}

	response.OK(c, dto.SummaryResponse{
		Start:    q.Start,
		End:      q.End,
		Counts:   summary,
		Degraded: degraded,
	})
}

// Upcoming 近期场次
// GET /api/v1/availability/upcoming?days=14
func (h *AvailabilityHandler) Upcoming(c *gin.Context) {
	var q dto.UpcomingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	days := q.Days
	if days <= 0 {
		days = h.upcomingDays
	}

	sessions, err := h.availabilitySvc.Upcoming(c.Request.Context(), days)
	degraded, ok := h.checkDegraded(c, err)
	if !ok {
		return
	}

	resp := dto.UpcomingResponse{
		Days:     days,
		Sessions: make([]dto.UpcomingSessionResponse, 0, len(sessions)),
		Degraded: degraded,
	}
	for _, s := range sessions {
		members := make([]dto.UpcomingMemberResponse, 0, len(s.Members))
		for _, m := range s.Members {
			members = append(members, dto.UpcomingMemberResponse{Username: m.Username, Guests: m.Guests})
		}
		resp.Sessions = append(resp.Sessions, dto.UpcomingSessionResponse{
			Date:        model.FormatDate(s.Date),
			Weekday:     service.WeekdayShort(s.Date),
			Members:     members,
			MembersText: service.FormatMembers(s.Members),
			Total:       s.Total(),
		})
	}
	response.OK(c, resp)
}

// ═══════════════════════════════════════════════════════════
// 本人意向
// ═══════════════════════════════════════════════════════════

// ListMyEntries 本人全部意向，按日期与时间段排序
// GET /api/v1/availability/me
func (h *AvailabilityHandler) ListMyEntries(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	entries, err := h.recommendationSvc.ListUserEntries(c.Request.Context(), actor, actor.UserID)
	degraded, ok := h.checkDegraded(c, err)
	if !ok {
		return
	}

	list := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		list = append(list, toEntryResponse(&entries[i]))
	}
	response.OK(c, gin.H{"list": list, "degraded": degraded})
}

// SaveDay 整日覆盖本人某日的意向
// PUT /api/v1/availability/me/days/:date
func (h *AvailabilityHandler) SaveDay(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	date, ok := h.pathDate(c)
	if !ok {
		return
	}

	var req dto.SaveDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	created, err := h.recommendationSvc.ReplaceDayEntries(c.Request.Context(), actor, service.ReplaceDayRequest{
		UserID:         actor.UserID,
		Date:           date,
		TimeSlots:      req.TimeSlots,
		LocationIDs:    req.LocationIDs,
		NumGuests:      req.NumGuests,
		EditingEntryID: req.EditingEntryID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, dto.SaveDayResponse{Date: model.FormatDate(date), Created: created})
}

// DeleteDay 删除本人某日全部意向
// DELETE /api/v1/availability/me/days/:date
func (h *AvailabilityHandler) DeleteDay(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	date, ok := h.pathDate(c)
	if !ok {
		return
	}

	deleted, err := h.recommendationSvc.DeleteDayEntries(c.Request.Context(), actor, actor.UserID, date)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, dto.DeleteDayResponse{Date: model.FormatDate(date), Deleted: deleted})
}

// GetEntry 查看本人单条意向
// GET /api/v1/availability/me/entries/:id
func (h *AvailabilityHandler) GetEntry(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := h.recommendationSvc.GetEntry(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, toEntryResponse(entry))
}

// DeleteEntry 删除本人单条意向
// DELETE /api/v1/availability/me/entries/:id
func (h *AvailabilityHandler) DeleteEntry(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.recommendationSvc.DeleteEntry(c.Request.Context(), actor, id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ExportICS 导出本人意向为 iCalendar
// GET /api/v1/availability/me/calendar.ics
func (h *AvailabilityHandler) ExportICS(c *gin.Context) {
	actor, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	data, err := h.recommendationSvc.ExportICS(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Attachment(c, "badminton.ics", icsContentType, data)
}

// ── 内部辅助方法 ──

// checkDegraded 存储不可用时记为降级并继续输出；其他错误直接写入响应
func (h *AvailabilityHandler) checkDegraded(c *gin.Context, err error) (degraded bool, ok bool) {
	if err == nil {
		return false, true
	}
	if errors.Is(err, service.ErrAvailabilityUnavailable) {
		h.logger.Warn("意向数据不可用，降级返回", zap.String("path", c.FullPath()), zap.Error(err))
		return true, true
	}
	handleServiceError(c, err)
	return false, false
}

// refDate 参考日期，缺省为今天（参数已由 isodate 校验）
func (h *AvailabilityHandler) refDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if s == "" || err != nil {
		return model.NormalizeDate(h.now())
	}
	return d
}

func (h *AvailabilityHandler) pathDate(c *gin.Context) (time.Time, bool) {
	d, err := model.ParseDate(c.Param("date"))
	if err != nil {
		response.BadRequest(c, codeBadRequest, "日期格式应为 YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func toPeriodResponse(p service.Period) dto.PeriodResponse {
	return dto.PeriodResponse{
		Start: model.FormatDate(p.Start),
		End:   model.FormatDate(p.End),
		Prev:  model.FormatDate(service.AdvancePeriod(p.Start, service.DirectionPrev)),
		Next:  model.FormatDate(service.AdvancePeriod(p.Start, service.DirectionNext)),
	}
}

func toEntryResponse(e *service.UserEntry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:           e.ID,
		Date:         model.FormatDate(e.Date),
		TimeSlot:     e.TimeSlot,
		LocationID:   e.LocationID,
		LocationName: e.LocationName,
		NumGuests:    e.NumGuests,
	}
}
