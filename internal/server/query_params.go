package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
)

func bindPagination(c *gin.Context) (pagination.Pagination, error) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		return pagination.Pagination{}, newValidationError("page_size", "invalid_page_size", "invalid page_size")
	}
	if query.PageSize < 0 {
		return pagination.Pagination{}, newValidationError("page_size", "invalid_page_size", "invalid page_size")
	}
	return query, nil
}
