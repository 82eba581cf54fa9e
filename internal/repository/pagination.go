package repository

import "gorm.io/gorm"

// maxPageSize 仓库层分页上限，调用方未归一化时兜底
const maxPageSize = 100

// applyPagination 应用分页参数，pageSize<=0 表示不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// listPage 先统计总数，再按 id 倒序取一页；scopes 只作用于取数（如预加载）
func listPage[T any](query *gorm.DB, page, pageSize int, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]T, 0)
	if total == 0 {
		return items, 0, nil
	}
	if err := applyPagination(query, page, pageSize).Scopes(scopes...).Order("id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
