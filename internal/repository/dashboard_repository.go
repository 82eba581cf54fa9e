package repository

import (
	"fmt"
	"time"

	"github.com/polyva-3d/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetModelTrends(startAt, endAt time.Time) ([]DashboardModelTrendRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	UsersTotal     int64
	VerifiedUsers  int64
	BlockedUsers   int64
	NewUsers       int64
	ModelsTotal    int64
	TextTo3DModels int64
	ImageModels    int64
	PublicModels   int64
	DemoModels     int64
	NewModels      int64
}

// DashboardModelTrendRow 每日生成趋势
type DashboardModelTrendRow struct {
	Day       string
	TextTo3D  int64
	ImageTo3D int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计，用户统计不含管理员
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	userBase := func() *gorm.DB {
		return r.db.Model(&models.User{}).Where("is_admin = ?", false)
	}
	if err := userBase().Count(&result.UsersTotal).Error; err != nil {
		return result, err
	}
	if err := userBase().Where("is_verified = ?", true).Count(&result.VerifiedUsers).Error; err != nil {
		return result, err
	}
	if err := userBase().Where("is_blocked = ?", true).Count(&result.BlockedUsers).Error; err != nil {
		return result, err
	}
	if err := userBase().Where("created_at >= ? AND created_at < ?", startAt, endAt).Count(&result.NewUsers).Error; err != nil {
		return result, err
	}

	modelBase := func() *gorm.DB {
		return r.db.Model(&models.Model{})
	}
	if err := modelBase().Count(&result.ModelsTotal).Error; err != nil {
		return result, err
	}
	if err := modelBase().Where("kind = ?", models.ModelKindTextTo3D).Count(&result.TextTo3DModels).Error; err != nil {
		return result, err
	}
	if err := modelBase().Where("kind = ?", models.ModelKindImageTo3D).Count(&result.ImageModels).Error; err != nil {
		return result, err
	}
	if err := modelBase().Where("is_public = ?", true).Count(&result.PublicModels).Error; err != nil {
		return result, err
	}
	if err := modelBase().Where("is_demo = ?", true).Count(&result.DemoModels).Error; err != nil {
		return result, err
	}
	if err := modelBase().Where("created_at >= ? AND created_at < ?", startAt, endAt).Count(&result.NewModels).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetModelTrends 按天统计两种生成方式的数量
func (r *GormDashboardRepository) GetModelTrends(startAt, endAt time.Time) ([]DashboardModelTrendRow, error) {
	type dayKindRow struct {
		Day   string
		Kind  string
		Total int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"
	var rows []dayKindRow
	if err := r.db.Model(&models.Model{}).
		Select(fmt.Sprintf("%s as day, kind, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr + ", kind").
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	trends := make([]DashboardModelTrendRow, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		pos, ok := index[row.Day]
		if !ok {
			trends = append(trends, DashboardModelTrendRow{Day: row.Day})
			pos = len(trends) - 1
			index[row.Day] = pos
		}
		switch row.Kind {
		case models.ModelKindTextTo3D:
			trends[pos].TextTo3D += row.Total
		case models.ModelKindImageTo3D:
			trends[pos].ImageTo3D += row.Total
		}
	}
	return trends, nil
}
