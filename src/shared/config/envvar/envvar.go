package envvar

import (
	"fmt"
	"os"
	"strconv"
)

const (
	ENVIRONMENT                      = "ENVIRONMENT"
	PORT                             = "PORT"
	ALLOWED_FE_ORIGINS               = "ALLOWED_FE_ORIGINS"
	AWS_ACCESS_KEY_ID                = "AWS_ACCESS_KEY_ID"
	AWS_SECRET_ACCESS_KEY            = "AWS_SECRET_ACCESS_KEY"
	AWS_REGION                       = "AWS_REGION"
	RABBITMQ_URL                     = "RABBITMQ_URL"
	RABBITMQ_QUEUE_NAME              = "RABBITMQ_QUEUE_NAME"
	GOOGLE_CLOUD_KEY                 = "GOOGLE_CLOUD_KEY"
	GOOGLE_CLOUD_STORAGE_BUCKET_NAME = "GOOGLE_CLOUD_STORAGE_BUCKET_NAME"
	DEMUCS_BIN_PATH                  = "DEMUCS_BIN_PATH"
	DEMUCS_MODEL                     = "DEMUCS_MODEL"
	FFMPEG_BIN_PATH                  = "FFMPEG_BIN_PATH"
	SEPARATION_WORKING_DIR_PATH      = "SEPARATION_WORKING_DIR_PATH"
	SEPARATION_OUTPUT_DIR_PATH       = "SEPARATION_OUTPUT_DIR_PATH"
	SEPARATION_TIMEOUT_SECONDS       = "SEPARATION_TIMEOUT_SECONDS"
	USE_LOCAL_DYNAMO                 = "USE_LOCAL_DYNAMO"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func GetOrDefault(key string, defaultVal string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return defaultVal
	}

	return val
}

func GetIntOrDefault(key string, defaultVal int) int {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return defaultVal
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		panic(fmt.Sprintf("Env variable %s is not an integer: %s", key, val))
	}

	return intVal
}
