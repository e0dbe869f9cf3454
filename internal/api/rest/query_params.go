package rest

import (
	"github.com/gin-gonic/gin"
)

const MAX_PAGE_SIZE = 200

// GetChangesQueryParams holds query parameters for GET /changes
type GetChangesQueryParams struct {
	// Cursor of the last entry already seen; the response starts strictly
	// after it.
	After int64 `form:"after,default=0"`

	// Pagination
	Limit int `form:"limit,default=50"`
}

// ParseGetChangesQuery parses query parameters for GET /changes
func ParseGetChangesQuery(c *gin.Context) (*GetChangesQueryParams, error) {
	var params GetChangesQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.After < 0 {
		params.After = 0
	}

	// Cap limit
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}
