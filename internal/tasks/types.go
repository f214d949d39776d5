package tasks

// Task statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task is the domain view returned to callers.
type Task struct {
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Category    string `json:"category,omitempty"`
	DueDate     string `json:"due_date,omitempty"` // YYYY-MM-DD
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	CompletedAt *int64 `json:"completed_at"`
}

// taskItem is the stored shape: the task plus its table and index keys.
// GSI2 and GSI4 keys are omitted when the task has no due date or category.
type taskItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK     string `dynamodbav:"GSI2SK,omitempty"`
	GSI3PK     string `dynamodbav:"GSI3PK"`
	GSI3SK     string `dynamodbav:"GSI3SK"`
	GSI4PK     string `dynamodbav:"GSI4PK,omitempty"`
	GSI4SK     string `dynamodbav:"GSI4SK,omitempty"`
	EntityType string `dynamodbav:"entity_type"`

	TaskID      string `dynamodbav:"task_id"`
	UserID      string `dynamodbav:"user_id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description,omitempty"`
	Status      string `dynamodbav:"status"`
	Priority    string `dynamodbav:"priority"`
	Category    string `dynamodbav:"category,omitempty"`
	DueDate     string `dynamodbav:"due_date,omitempty"`
	CreatedAt   int64  `dynamodbav:"created_at"`
	UpdatedAt   int64  `dynamodbav:"updated_at"`
	CompletedAt int64  `dynamodbav:"completed_at,omitempty"`
}

// CreateInput is the payload for creating a task.
type CreateInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress"` // initial status only
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category    string `json:"category,omitempty" validate:"max=50,excludes=#"`
	DueDate     string `json:"due_date,omitempty" validate:"omitempty,isodate"`
}

// UpdateInput is a partial update: nil fields are left unchanged, an empty
// string clears description, category and due_date.
type UpdateInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=50,excludes=#"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,isodate|len=0"`
}

// ListFilter selects which listing ListTasks runs. At most one of Status,
// Priority, Category or the due date range is used.
type ListFilter struct {
	Status   string
	Priority string
	Category string
	DueFrom  string
	DueTo    string
	Limit    int32
	Cursor   string
}

// Page is one page of tasks. Callers loop on NextCursor until it is empty.
type Page struct {
	Tasks      []Task `json:"tasks"`
	NextCursor string `json:"next_cursor,omitempty"`
}
