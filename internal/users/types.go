package users

// User is the domain view returned to callers.
type User struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type userItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"entity_type"`
	UserID      string `dynamodbav:"user_id"`
	Email       string `dynamodbav:"email"`
	DisplayName string `dynamodbav:"display_name"`
	CreatedAt   int64  `dynamodbav:"created_at"`
	UpdatedAt   int64  `dynamodbav:"updated_at"`
}

// ProfileInput is a partial profile update.
type ProfileInput struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,notblank,max=100"`
}
