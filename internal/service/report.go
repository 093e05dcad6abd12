package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
)

// ReportService 营收统计
type ReportService struct {
	base
}

// NewReportService 创建报表服务
func NewReportService(store repository.Store, logger *zap.Logger) *ReportService {
	return &ReportService{base: newBase(store, logger)}
}

// RevenueSummary 已完成租赁的营收汇总
type RevenueSummary struct {
	CompletedRentals int
	TotalRevenue     decimal.Decimal
}

// Revenue 汇总已完成租赁的最终费用
func (s *ReportService) Revenue(ctx context.Context) (*RevenueSummary, error) {
	rentals, err := s.store.LoadRentals(ctx)
	if err != nil {
		return nil, s.persistence("revenue", err)
	}

	summary := &RevenueSummary{TotalRevenue: decimal.Zero}
	for _, r := range rentals {
		if r.Status != models.RentalCompleted {
			continue
		}
		summary.CompletedRentals++
		summary.TotalRevenue = summary.TotalRevenue.Add(r.TotalCost)
	}
	return summary, nil
}

// GenerateRevenueReport 生成并保存营收报表
func (s *ReportService) GenerateRevenueReport(ctx context.Context, agent *models.CompanyAgent) (*RevenueSummary, string, error) {
	summary, err := s.Revenue(ctx)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	id := uuid.New().String()
	content := renderRevenueReport(id, summary, agent, now)
	doc := repository.Document{
		ID:        id,
		Kind:      repository.DocumentRevenue,
		OwnerID:   agent.ID,
		CreatedAt: now,
		Content:   content,
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, "", s.persistence("generate revenue report", err)
	}

	s.logger.Info("Revenue report generated",
		zap.String("agent_id", agent.ID),
		zap.Int("completed_rentals", summary.CompletedRentals),
		zap.String("total_revenue", summary.TotalRevenue.StringFixed(2)),
	)
	return summary, content, nil
}

func renderRevenueReport(id string, summary *RevenueSummary, agent *models.CompanyAgent, at time.Time) string {
	var b strings.Builder
	b.WriteString("========== REVENUE REPORT ==========\n")
	fmt.Fprintf(&b, "Report No:          %s\n", id)
	fmt.Fprintf(&b, "Generated:          %s\n", at.Format(time.DateTime))
	fmt.Fprintf(&b, "Agent:              %s (%s)\n", agent.Name, agent.ID)
	fmt.Fprintf(&b, "Completed rentals:  %d\n", summary.CompletedRentals)
	fmt.Fprintf(&b, "Total revenue:      $%s\n", summary.TotalRevenue.StringFixed(2))
	b.WriteString("====================================\n")
	return b.String()
}
