package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/backup"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ErrInvalidWeek week_of 或 timezone 无法解析
var ErrInvalidWeek = errors.New("week_of 或 timezone 无效")

// ExportService 导出 / 导入业务接口
//
// 设计说明：
//   - 导出不读数据库，客户端提交完整文档，服务端只负责渲染
//   - 渲染前与保存一样做校验，孤立排课不会出现在导出结果里
//   - 导入只解析并返回校验后的文档，是否替换由客户端确认
type ExportService interface {
	HTML(ctx context.Context, req *dto.ExportRequest) (string, error)
	XLSX(ctx context.Context, req *dto.ExportRequest) (*bytes.Buffer, error)
	ICS(ctx context.Context, req *dto.ExportRequest) (string, error)
	ImportHTML(ctx context.Context, r io.Reader) (*dto.ImportResponse, error)
}

type exportService struct {
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, logger: logger, now: time.Now}
}

func (s *exportService) HTML(_ context.Context, req *dto.ExportRequest) (string, error) {
	doc, err := s.document(req)
	if err != nil {
		return "", err
	}
	out, err := export.RenderHTML(doc)
	if err != nil {
		s.logger.Error("渲染 HTML 失败", zap.Error(err))
		return "", err
	}
	return out, nil
}

func (s *exportService) XLSX(_ context.Context, req *dto.ExportRequest) (*bytes.Buffer, error) {
	doc, err := s.document(req)
	if err != nil {
		return nil, err
	}
	buf, err := export.RenderXLSX(doc)
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, err
	}
	return buf, nil
}

// ═══════════════════════════════════════════════════════════
// ICS 每条排课生成一个按周重复的事件
// ═══════════════════════════════════════════════════════════
//
// week_of 缺省为当前日期，取其所在周的周一作为首次上课日；
// timezone 缺省为 schedule.timezone。

func (s *exportService) ICS(_ context.Context, req *dto.ExportRequest) (string, error) {
	doc, err := s.document(req)
	if err != nil {
		return "", err
	}

	tz := req.Timezone
	if tz == "" {
		tz = s.cfg.Schedule.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWeek, err)
	}

	weekOf := s.now().In(loc)
	if req.WeekOf != "" {
		weekOf, err = time.ParseInLocation("2006-01-02", req.WeekOf, loc)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidWeek, err)
		}
	}

	out, err := export.RenderICS(doc, weekOf, loc)
	if err != nil {
		if !errors.Is(err, export.ErrNoEntries) {
			s.logger.Error("生成 ICS 失败", zap.Error(err))
		}
		return "", err
	}
	return out, nil
}

func (s *exportService) ImportHTML(_ context.Context, r io.Reader) (*dto.ImportResponse, error) {
	b, err := backup.Parse(r)
	if err != nil {
		return nil, err
	}
	if b.Dropped > 0 || b.Rejected > 0 {
		s.logger.Info("导入时丢弃了部分记录",
			zap.Int("rejected", b.Rejected),
			zap.Int("dropped", b.Dropped),
		)
	}
	return &dto.ImportResponse{
		Payload:    b.Payload(),
		ExportedAt: model.EpochMillis(b.ExportedAt),
		Dropped:    b.Dropped,
		Rejected:   b.Rejected,
	}, nil
}

// document 校验提交的文档并构造渲染输入
func (s *exportService) document(req *dto.ExportRequest) (export.Document, error) {
	raw, err := json.Marshal(req.Payload)
	if err != nil {
		return export.Document{}, err
	}
	p, _, err := normalizePayload(raw)
	if err != nil {
		return export.Document{}, err
	}
	return export.FromPayload(p, s.now(), s.cfg.Schedule.Collation), nil
}
