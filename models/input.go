package models

// RegisterInput là payload đăng ký
type RegisterInput struct {
	Name      string `json:"name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,maxbytes=72"`
	Role      Role   `json:"role" validate:"omitempty,oneof=user admin"`
	AdminCode string `json:"adminCode"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// CreateTaskInput không có trường user: owner luôn lấy từ identity
type CreateTaskInput struct {
	Title       string       `json:"title" validate:"required,max=100"`
	Description string       `json:"description" validate:"max=500"`
	Status      TaskStatus   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *Date        `json:"dueDate"`
}

// UpdateTaskInput chỉ áp dụng các trường có mặt trong payload
type UpdateTaskInput struct {
	Title       *string       `json:"title" validate:"omitempty,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=500"`
	Status      *TaskStatus   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *Date         `json:"dueDate"`
}

type TaskQuery struct {
	Status   TaskStatus   `query:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority TaskPriority `query:"priority" validate:"omitempty,oneof=low medium high"`
	Page     int          `query:"page"`
	Limit    int          `query:"limit"`
}
