package repository

import "gorm.io/gorm"

const maxPageSize = 200

// findPage 统计总数后按页读取，pageSize<=0 表示不分页
func findPage[T any](query *gorm.DB, page, pageSize int, order string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []T{}, 0, nil
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	if order != "" {
		query = query.Order(order)
	}
	rows := make([]T, 0)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
