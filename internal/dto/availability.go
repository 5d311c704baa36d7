package dto

// ── 打球意向模块 DTO ──

// PeriodQuery 周期查询参数
type PeriodQuery struct {
	Date      string `form:"date"      binding:"omitempty,isodate"`
	Direction string `form:"direction" binding:"omitempty,oneof=prev next"`
}

// CalendarQuery 日历查询参数（start 可为任意日期，按所在周期对齐）
type CalendarQuery struct {
	Start     string `form:"start"     binding:"omitempty,isodate"`
	Direction string `form:"direction" binding:"omitempty,oneof=prev next"`
}

// SummaryQuery 汇总查询参数
type SummaryQuery struct {
	Start string `form:"start" binding:"required,isodate"`
	End   string `form:"end"   binding:"required,isodate"`
}

// UpcomingQuery 近期场次查询参数
type UpcomingQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=90"`
}

// ExportQuery 导出查询参数
type ExportQuery struct {
	Start string `form:"start" binding:"omitempty,isodate"`
}

// SaveDayRequest 保存某日意向（整日覆盖）
type SaveDayRequest struct {
	TimeSlots      []string `json:"time_slots"       binding:"required,min=1,dive,timeslot"`
	LocationIDs    []string `json:"location_ids"     binding:"required,min=1,dive,uuid"`
	NumGuests      int      `json:"num_guests"       binding:"min=0"`
	EditingEntryID string   `json:"editing_entry_id" binding:"omitempty,uuid"`
}

// PeriodResponse 两周周期窗口
type PeriodResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Prev  string `json:"prev"`
	Next  string `json:"next"`
}

// CalendarDayResponse 日历中的一天
type CalendarDayResponse struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Interest int    `json:"interest"`
	IsToday  bool   `json:"is_today"`
}

// CalendarResponse 两周日历
type CalendarResponse struct {
	Period   PeriodResponse        `json:"period"`
	Days     []CalendarDayResponse `json:"days"`
	Degraded bool                  `json:"degraded"`
}

// SummaryResponse 日期 → 兴趣人数
type SummaryResponse struct {
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Counts   map[string]int `json:"counts"`
	Degraded bool           `json:"degraded"`
}

// UpcomingMemberResponse 场次中的成员
type UpcomingMemberResponse struct {
	Username string `json:"username"`
	Guests   int    `json:"guests"`
}

// UpcomingSessionResponse 某日的近期场次
type UpcomingSessionResponse struct {
	Date        string                   `json:"date"`
	Weekday     string                   `json:"weekday"`
	Members     []UpcomingMemberResponse `json:"members"`
	MembersText string                   `json:"members_text"`
	Total       int                      `json:"total"`
}

// UpcomingResponse 近期场次列表
type UpcomingResponse struct {
	Days     int                       `json:"days"`
	Sessions []UpcomingSessionResponse `json:"sessions"`
	Degraded bool                      `json:"degraded"`
}

// EntryResponse 单条意向
type EntryResponse struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	TimeSlot     string `json:"time_slot"`
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name,omitempty"`
	NumGuests    int    `json:"num_guests"`
}

// SaveDayResponse 保存结果
type SaveDayResponse struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
}

// DeleteDayResponse 删除结果
type DeleteDayResponse struct {
	Date    string `json:"date"`
	Deleted int64  `json:"deleted"`
}
