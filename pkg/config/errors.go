package config

import "errors"

var (
	// ErrReadingFile is returned when the configuration file exists but cannot be read
	ErrReadingFile = errors.New("config: failed to read configuration file")

	// ErrParsingFile is returned when the configuration file is not valid YAML
	ErrParsingFile = errors.New("config: failed to parse configuration file")

	// ErrParsingEnv is returned when environment variables cannot be parsed into the config
	ErrParsingEnv = errors.New("config: failed to parse environment variables")

	// ErrInvalidConfig is returned by Validate
	ErrInvalidConfig = errors.New("config: invalid configuration")
)
