package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/internal/model"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = pkgerrors.Unavailable("生成 Excel 文件失败", nil)
)

const exportSheet = "Availability"

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportPeriod 导出 ref 所在两周周期的意向汇总为 Excel
	ExportPeriod(ctx context.Context, ref time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	availability AvailabilityService
	logger       *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(availability AvailabilityService, logger *zap.Logger) ExportService {
	return &exportService{availability: availability, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportPeriod 导出两周意向汇总
// ═══════════════════════════════════════════════════════════
//
// 输出格式（Sheet "Availability"）：
//   - 第 1 行：标题 "Badminton availability <start> ~ <end>"
//   - 第 2 行：表头 Date | Weekday | Interest | Members
//   - 之后 14 行，每天一行；无人报名的日期 Interest 为 0、Members 为 "-"

func (s *exportService) ExportPeriod(ctx context.Context, ref time.Time) (*bytes.Buffer, string, error) {
	period := ResolvePeriod(ref, mo.None[Direction]())

	sessions, err := s.availability.Sessions(ctx, period.Start, period.End)
	if err != nil {
		return nil, "", err
	}
	byDate := make(map[string]UpcomingSession, len(sessions))
	for _, sess := range sessions {
		byDate[model.FormatDate(sess.Date)] = sess
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetColWidth(exportSheet, "A", "A", 14)
	_ = f.SetColWidth(exportSheet, "B", "B", 10)
	_ = f.SetColWidth(exportSheet, "C", "C", 10)
	_ = f.SetColWidth(exportSheet, "D", "D", 60)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	_ = f.SetCellValue(exportSheet, "A1", fmt.Sprintf("Badminton availability %s ~ %s",
		model.FormatDate(period.Start), model.FormatDate(period.End)))
	_ = f.MergeCell(exportSheet, "A1", "D1")
	_ = f.SetCellStyle(exportSheet, "A1", "D1", headerStyle)

	// 表头
	for i, title := range []string{"Date", "Weekday", "Interest", "Members"} {
		_ = f.SetCellValue(exportSheet, cell(colName(i), 2), title)
	}
	_ = f.SetCellStyle(exportSheet, "A2", "D2", headerStyle)

	// 数据行
	row := 3
	for _, d := range period.Days() {
		sess, ok := byDate[model.FormatDate(d)]
		members := "-"
		interest := 0
		if ok {
			members = FormatMembers(sess.Members)
			interest = sess.Total()
		}
		_ = f.SetCellValue(exportSheet, cell("A", row), model.FormatDate(d))
		_ = f.SetCellValue(exportSheet, cell("B", row), WeekdayShort(d))
		_ = f.SetCellValue(exportSheet, cell("C", row), interest)
		_ = f.SetCellValue(exportSheet, cell("D", row), members)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("availability_%s.xlsx", model.FormatDate(period.Start))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
