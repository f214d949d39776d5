package validation

// TaskListQuery is the query string of GET /tasks. At most one of the
// filters may be given; due_from and due_to together form one filter.
type TaskListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority string `form:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category string `form:"category" validate:"omitempty,max=50"`
	DueFrom  string `form:"due_from" validate:"omitempty,isodate"`
	DueTo    string `form:"due_to" validate:"omitempty,isodate"`
	Limit    int32  `form:"limit" validate:"omitempty,min=1,max=100"`
	Cursor   string `form:"cursor"`
}
