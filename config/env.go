package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadENV nạp biến môi trường từ file .env, bỏ qua nếu không có file
func LoadENV(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
