package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads variables from a .env file without overriding the real
// environment. A missing file is not an error.
func LoadEnvFile(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
