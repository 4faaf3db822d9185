package main

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that provide flag defaults.  They may also be set in
// a ".env" file in the working directory.
const (
	envTarget     = "HIKEXTRACT_TARGET"
	envLogDir     = "HIKEXTRACT_LOG_DIR"
	envWorkers    = "HIKEXTRACT_WORKERS"
	envValidate   = "HIKEXTRACT_VALIDATE"
	envFFmpeg     = "HIKEXTRACT_FFMPEG"
	envVideoTag   = "HIKEXTRACT_VIDEO_TAG"
	envMergeDays  = "HIKEXTRACT_MERGE_DAYS"
	envMergeLimit = "HIKEXTRACT_MERGE_LIMIT"
)

func envString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}
