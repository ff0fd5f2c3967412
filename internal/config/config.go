package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig marks configuration problems that should terminate the run
// with a non-zero exit code.
var ErrInvalidConfig = errors.New("invalid configuration")

// JobType selects which collection pipeline the process runs.
type JobType string

const (
	JobURLCollect JobType = "url_collect"
	JobDoctorInfo JobType = "doctor_info"
	JobOutpatient JobType = "outpatient"
	JobValidation JobType = "doctor_info_validation"
)

type Config struct {
	AppEnv  string
	JobType JobType

	// Sharding. CLOUD_RUN_TASK_* take precedence when set so the same image
	// runs unchanged as a Cloud Run job.
	TaskIndex int
	TaskCount int

	RedisAddr     string
	RedisPassword string
	DataDir       string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	GeminiAPIKey string
	AIModel      string
	AITemp       float64
	AITimeout    time.Duration

	MaxRetries            int
	RetryDelay            time.Duration
	MaxContentLength      int
	RequestTimeout        time.Duration
	MaxConcurrentRequests int

	CrawlMaxDepth int
	CrawlMaxPages int

	EnableCompositeType bool
	KeywordTablePath    string

	FailureRateAlertThreshold float64
	FailureStatsLogInterval   int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Load() Config {
	taskIndex := getenvInt("TASK_INDEX", 0)
	taskCount := getenvInt("TASK_COUNT", 1)
	if v := os.Getenv("CLOUD_RUN_TASK_INDEX"); v != "" {
		taskIndex = getenvInt("CLOUD_RUN_TASK_INDEX", taskIndex)
	}
	if v := os.Getenv("CLOUD_RUN_TASK_COUNT"); v != "" {
		taskCount = getenvInt("CLOUD_RUN_TASK_COUNT", taskCount)
	}

	return Config{
		AppEnv:  getenv("APP_ENV", "development"),
		JobType: JobType(getenv("JOB_TYPE", string(JobURLCollect))),

		TaskIndex: taskIndex,
		TaskCount: taskCount,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "collector"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		AIModel:      getenv("AI_MODEL", "gemini-2.5-flash-lite"),
		AITemp:       getenvFloat("AI_TEMPERATURE", 0.05),
		AITimeout:    time.Duration(getenvInt("AI_TIMEOUT", 120)) * time.Second,

		MaxRetries:            getenvInt("MAX_RETRIES", 3),
		RetryDelay:            time.Duration(getenvFloat("RETRY_DELAY", 1.0) * float64(time.Second)),
		MaxContentLength:      getenvInt("MAX_CONTENT_LENGTH", 30000),
		RequestTimeout:        time.Duration(getenvInt("REQUEST_TIMEOUT", 30)) * time.Second,
		MaxConcurrentRequests: getenvInt("MAX_CONCURRENT_REQUESTS", 5),

		CrawlMaxDepth: getenvInt("CRAWL_MAX_DEPTH", 4),
		CrawlMaxPages: getenvInt("CRAWL_MAX_PAGES", 800),

		EnableCompositeType: getenvBool("ENABLE_COMPOSITE_TYPE", false),
		KeywordTablePath:    os.Getenv("KEYWORD_TABLE_PATH"),

		FailureRateAlertThreshold: getenvFloat("FAILURE_RATE_ALERT_THRESHOLD", 0.15),
		FailureStatsLogInterval:   getenvInt("FAILURE_STATISTICS_LOG_INTERVAL", 100),
	}
}

// Validate checks the settings a run cannot proceed without.
func (c Config) Validate() error {
	switch c.JobType {
	case JobURLCollect, JobDoctorInfo, JobOutpatient, JobValidation:
	default:
		return fmt.Errorf("%w: unknown JOB_TYPE %q", ErrInvalidConfig, c.JobType)
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is required", ErrInvalidConfig)
	}
	if c.TaskCount <= 0 {
		return fmt.Errorf("%w: TASK_COUNT must be positive, got %d", ErrInvalidConfig, c.TaskCount)
	}
	if c.TaskIndex < 0 || c.TaskIndex >= c.TaskCount {
		return fmt.Errorf("%w: TASK_INDEX %d out of range for TASK_COUNT %d", ErrInvalidConfig, c.TaskIndex, c.TaskCount)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_REQUESTS must be positive", ErrInvalidConfig)
	}
	return nil
}
