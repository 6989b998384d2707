package models

import "time"

// Role là quyền của người dùng
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// TaskStatus là trạng thái của một task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority là mức độ ưu tiên của một task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task là cấu trúc dữ liệu của một task, luôn thuộc về đúng một user
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	UserID      string       `json:"user"`
	Owner       *Owner       `json:"owner,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Owner là thông tin công khai của owner, không được lưu cùng task
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // chỉ lưu bcrypt hash
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity là thông tin người gọi lấy từ access token
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess cho biết identity có được đọc/ghi task hay không
func (i Identity) CanAccess(t *Task) bool {
	return i.IsAdmin() || t.UserID == i.ID
}

// Scope trả về owner id dùng để giới hạn truy vấn, rỗng với admin
func (i Identity) Scope() string {
	if i.IsAdmin() {
		return ""
	}
	return i.ID
}

// TaskFilter là điều kiện lọc ở tầng lưu trữ
type TaskFilter struct {
	UserID   string
	Status   TaskStatus
	Priority TaskPriority
	Offset   int
	Limit    int
}

// TaskPage là một trang kết quả của danh sách task
type TaskPage struct {
	Items []Task
	Count int
	Total int64
	Page  int
	Pages int
}

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
