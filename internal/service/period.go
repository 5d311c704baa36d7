package service

import (
	"time"

	"github.com/samber/mo"

	"github.com/gabrielsqw/badminton-club/internal/model"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
)

// PeriodDays 一个展示周期的天数（两周）
const PeriodDays = 14

// ErrInvalidDirection 翻页方向只能是 prev / next
var ErrInvalidDirection = pkgerrors.Validation("翻页方向无效，只能为 prev 或 next")

// Direction 周期翻页方向
type Direction int

const (
	DirectionPrev Direction = -1
	DirectionNext Direction = 1
)

func (d Direction) String() string {
	if d == DirectionPrev {
		return "prev"
	}
	return "next"
}

// ParseDirection 解析翻页方向
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "prev":
		return DirectionPrev, nil
	case "next":
		return DirectionNext, nil
	default:
		return 0, ErrInvalidDirection
	}
}

// ParseOptionalDirection 空串视为未指定
func ParseOptionalDirection(s string) (mo.Option[Direction], error) {
	if s == "" {
		return mo.None[Direction](), nil
	}
	dir, err := ParseDirection(s)
	if err != nil {
		return mo.None[Direction](), err
	}
	return mo.Some(dir), nil
}

// PeriodStart 返回 ref 当天或之前最近的周一
func PeriodStart(ref time.Time) time.Time {
	d := model.NormalizeDate(ref)
	offset := (int(d.Weekday()) + 6) % 7 // 周一=0 … 周日=6
	return d.AddDate(0, 0, -offset)
}

// AdvancePeriod 向前或向后翻一个周期
func AdvancePeriod(start time.Time, dir Direction) time.Time {
	return model.NormalizeDate(start).AddDate(0, 0, int(dir)*PeriodDays)
}

// PeriodEnd 周期最后一天（含）
func PeriodEnd(start time.Time) time.Time {
	return model.NormalizeDate(start).AddDate(0, 0, PeriodDays-1)
}

// Period 两周窗口 [Start, End]
type Period struct {
	Start time.Time
	End   time.Time
}

// Days 按顺序返回窗口内的每一天
func (p Period) Days() []time.Time {
	days := make([]time.Time, 0, PeriodDays)
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ResolvePeriod 对齐 ref 所在周期，再按可选方向翻页
func ResolvePeriod(ref time.Time, dir mo.Option[Direction]) Period {
	start := PeriodStart(ref)
	if d, ok := dir.Get(); ok {
		start = AdvancePeriod(start, d)
	}
	return Period{Start: start, End: PeriodEnd(start)}
}

// WeekdayShort 星期缩写（Mon … Sun）
func WeekdayShort(d time.Time) string {
	return d.Weekday().String()[:3]
}
