package view

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Pagination struct {
	Page    int  `json:"page" yaml:"page"`
	Limit   int  `json:"limit" yaml:"limit"`
	Total   int  `json:"total" yaml:"total"`
	Pages   int  `json:"pages" yaml:"pages"`
	From    int  `json:"from" yaml:"from"`
	To      int  `json:"to" yaml:"to"`
	HasPrev bool `json:"has_prev" yaml:"has_prev"`
	HasNext bool `json:"has_next" yaml:"has_next"`
}

// NormalizePage clamps user supplied paging input before it is sent upstream.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}

// Paginate computes the pager for an offset-paginated list. From and To are
// 1-based item positions and are zero for an empty list.
func Paginate(total, page, limit int) Pagination {
	page, limit = NormalizePage(page, limit)
	if total < 0 {
		total = 0
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	p := Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	if total > 0 {
		p.From = (page-1)*limit + 1
		p.To = min(page*limit, total)
	}
	return p
}
