package model

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type modelable interface {
	any
}

type GenericParams struct {
	PaginationParams
	Keyword string `form:"keyword"`
}

type PaginationParams struct {
	Page  int    `form:"page"`
	Size  int    `form:"size"`
	Order string `form:"order"`
}

type DataResult[T modelable] struct {
	Data       *[]*T `json:"data"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalCount int64 `json:"total_count"`
}

func PaginateAndOrder[T modelable](db *gorm.DB, params *PaginationParams, result *[]*T, allowedOrderFields map[string]bool) (*DataResult[T], error) {
	// 获取总数
	var totalCount int64
	err := db.Model(new(T)).Count(&totalCount).Error
	if err != nil {
		return nil, err
	}

	// 分页
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size < 1 {
		params.Size = 10
	}
	if params.Size > 100 {
		params.Size = 100
	}

	offset := (params.Page - 1) * params.Size
	db = db.Offset(offset).Limit(params.Size)

	// 排序
	if params.Order != "" {
		orderFields := strings.Split(params.Order, ",")
		for _, field := range orderFields {
			field = strings.TrimSpace(field)
			desc := strings.HasPrefix(field, "-")
			if desc {
				field = field[1:]
			}
			if !allowedOrderFields[field] {
				return nil, fmt.Errorf("不允许对字段 '%s' 进行排序", field)
			}
			if desc {
				field = field + " DESC"
			}
			db = db.Order(field)
		}
	} else {
		// 默认排序
		db = db.Order("id DESC")
	}

	// 查询
	err = db.Find(result).Error
	if err != nil {
		return nil, err
	}

	// 返回结果
	return &DataResult[T]{
		Data:       result,
		Page:       params.Page,
		Size:       params.Size,
		TotalCount: totalCount,
	}, nil
}

// RecordExists 检查字段值是否已被占用，excludeID 用于更新时排除自身
func RecordExists(table any, fieldName string, fieldValue any, excludeID any) bool {
	return RecordExistsWithTx(DB, table, fieldName, fieldValue, excludeID)
}

func RecordExistsWithTx(tx *gorm.DB, table any, fieldName string, fieldValue any, excludeID any) bool {
	var count int64
	query := tx.Model(table).Where(fmt.Sprintf("%s = ?", fieldName), fieldValue)
	if excludeID != nil {
		query = query.Not("id", excludeID)
	}
	query.Count(&count)
	return count > 0
}

func getTimestampGroupsSelect(fieldName, groupType, alias string) string {
	var groupSelect string

	if UsingPostgreSQL {
		switch groupType {
		case "month":
			groupSelect = fmt.Sprintf(`TO_CHAR(date_trunc('month', to_timestamp(%s)), 'YYYY-MM') as %s`, fieldName, alias)
		case "day":
			groupSelect = fmt.Sprintf(`TO_CHAR(date_trunc('day', to_timestamp(%s)), 'YYYY-MM-DD') as %s`, fieldName, alias)
		case "week":
			groupSelect = fmt.Sprintf(`TO_CHAR(date_trunc('week', to_timestamp(%s)), 'YYYY-MM-DD') as %s`, fieldName, alias)
		}
	} else if UsingSQLite {
		switch groupType {
		case "month":
			groupSelect = fmt.Sprintf(`strftime('%%Y-%%m', datetime(%s, 'unixepoch')) as %s`, fieldName, alias)
		case "day":
			groupSelect = fmt.Sprintf(`strftime('%%Y-%%m-%%d', datetime(%s, 'unixepoch')) as %s`, fieldName, alias)
		case "week":
			groupSelect = fmt.Sprintf(`strftime('%%Y-%%W', datetime(%s, 'unixepoch')) as %s`, fieldName, alias)
		}
	} else {
		switch groupType {
		case "month":
			groupSelect = fmt.Sprintf(`DATE_FORMAT(FROM_UNIXTIME(%s), '%%Y-%%m') as %s`, fieldName, alias)
		case "day":
			groupSelect = fmt.Sprintf(`DATE_FORMAT(FROM_UNIXTIME(%s), '%%Y-%%m-%%d') as %s`, fieldName, alias)
		case "week":
			groupSelect = fmt.Sprintf(`DATE_FORMAT(FROM_UNIXTIME(%s), '%%Y-%%u') as %s`, fieldName, alias)
		}
	}

	return groupSelect
}
