package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = pkgerrors.New(pkgerrors.KindInternal, "Unable to generate the export file.")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出学员已完成训练为 Excel (.xlsx)，一行一次训练
//   - 以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportSessionHistory 返回 buf 与建议文件名
	ExportSessionHistory(ctx context.Context, userID string, req *dto.DateRangeRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var historyHeaders = []string{"完成时间", "动作", "动作类型", "训练类型", "组数", "次数", "训练量", "时长(秒)", "最大重量"}

// ═══════════════════════════════════════════════════════════
// ExportSessionHistory — 导出训练历史为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSessionHistory(ctx context.Context, userID string, req *dto.DateRangeRequest) (*bytes.Buffer, string, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, "", err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, "", err
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, "", ErrDateRange
	}

	filter := repository.SessionHistoryFilter{UserID: userID, Start: start}
	if end != nil {
		endExclusive := clock.AddDays(*end, 1)
		filter.End = &endExclusive
	}

	// limit -1 取全部
	sessions, _, err := s.repo.Session.ListHistory(ctx, filter, 0, -1)
	if err != nil {
		return nil, "", storeError(s.logger, "查询训练历史失败", err, nil, zap.String("user_id", userID))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "训练历史"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range historyHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(historyHeaders)-1), 1), headerStyle)
	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i := range sessions {
		item := toHistoryItem(&sessions[i])
		row := i + 2
		values := []interface{}{
			item.CompletedAt,
			item.Workout.Name,
			item.Workout.Type,
			item.SessionType,
			item.TotalSets,
			item.TotalReps,
			item.TotalVolume,
			item.TotalDuration,
			"-",
		}
		if item.MaxWeight != nil {
			values[8] = *item.MaxWeight
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail.Wrap(err)
	}

	filename := fmt.Sprintf("training_history_%s.xlsx", userID)
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
