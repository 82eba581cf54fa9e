package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/polyva-3d/internal/cache"
	"github.com/polyva-3d/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
)

// ErrDashboardRangeInvalid 统计区间非法
var ErrDashboardRangeInvalid = errors.New("dashboard range invalid")

// DashboardService 管理端统计服务
type DashboardService struct {
	repo repository.DashboardRepository
	now  func() time.Time
}

// NewDashboardService 创建统计服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// DashboardQueryInput 统计查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardStats 用户与模型统计
type DashboardStats struct {
	Range    string               `json:"range"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Timezone string               `json:"timezone"`
	Users    DashboardUserStats   `json:"users"`
	Models   DashboardModelStats  `json:"models"`
	Trends   []DashboardTrendItem `json:"trends"`
}

// DashboardUserStats 用户统计（不含管理员）
type DashboardUserStats struct {
	Total    int64 `json:"total"`
	Verified int64 `json:"verified"`
	Blocked  int64 `json:"blocked"`
	New      int64 `json:"new"`
}

// DashboardModelStats 模型统计
type DashboardModelStats struct {
	Total     int64 `json:"total"`
	TextTo3D  int64 `json:"text_to_3d"`
	ImageTo3D int64 `json:"image_to_3d"`
	Public    int64 `json:"public"`
	Demo      int64 `json:"demo"`
	New       int64 `json:"new"`
}

// DashboardTrendItem 每日生成数量
type DashboardTrendItem struct {
	Date      string `json:"date"`
	TextTo3D  int64  `json:"text_to_3d"`
	ImageTo3D int64  `json:"image_to_3d"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetStats 获取统计数据，Redis 启用时短时缓存
func (s *DashboardService) GetStats(ctx context.Context, input DashboardQueryInput) (*DashboardStats, error) {
	window, err := resolveDashboardWindow(input, s.now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:stats:%s:%d:%d:%s",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
	)
	if !input.ForceRefresh {
		var cached DashboardStats
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	trendRows, err := s.repo.GetModelTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	trends := make([]DashboardTrendItem, 0, len(trendRows))
	for _, row := range trendRows {
		trends = append(trends, DashboardTrendItem{
			Date:      row.Day,
			TextTo3D:  row.TextTo3D,
			ImageTo3D: row.ImageTo3D,
		})
	}

	stats := &DashboardStats{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Format(time.RFC3339),
		Timezone: window.timezone,
		Users: DashboardUserStats{
			Total:    overview.UsersTotal,
			Verified: overview.VerifiedUsers,
			Blocked:  overview.BlockedUsers,
			New:      overview.NewUsers,
		},
		Models: DashboardModelStats{
			Total:     overview.ModelsTotal,
			TextTo3D:  overview.TextTo3DModels,
			ImageTo3D: overview.ImageModels,
			Public:    overview.PublicModels,
			Demo:      overview.DemoModels,
			New:       overview.NewModels,
		},
		Trends: trends,
	}
	_ = cache.SetJSON(ctx, cacheKey, stats, dashboardCacheTTL)
	return stats, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}
