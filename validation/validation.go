package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error chứa toàn bộ lỗi của payload theo thứ tự các trường
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// messages ánh xạ "<trường>.<tag>" sang thông báo cho client
var messages = map[string]string{
	"name.required":         "Name is required",
	"name.min":              "Name must be between 2 and 50 characters",
	"name.max":              "Name must be between 2 and 50 characters",
	"email.required":        "Email is required",
	"email.email":           "Please provide a valid email",
	"password.required":     "Password is required",
	"password.min":          "Password must be at least 6 characters",
	"password.maxbytes":     "Password cannot exceed 72 characters",
	"role.oneof":            "Role must be either user or admin",
	"refreshToken.required": "Refresh token is required",
	"title.required":        "Please provide a title",
	"title.max":             "Title cannot exceed 100 characters",
	"description.max":       "Description cannot exceed 500 characters",
	"status.oneof":          "Status must be one of pending, in-progress, completed",
	"priority.oneof":        "Priority must be one of low, medium, high",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	// bcrypt giới hạn theo byte, còn max của validator đếm rune
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Struct kiểm tra v theo các tag `validate`, trả về *Error nếu có vi phạm
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Error{Messages: make([]string, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Messages = append(out.Messages, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
