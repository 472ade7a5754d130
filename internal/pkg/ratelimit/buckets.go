package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"github.com/MarcoHauser/LancerDesk/internal/pkg/env"
)

// Bucket names one logical request budget. Key material is appended to the
// bucket name so different callers never share a counter row.
type Bucket struct {
	Name   string
	Window time.Duration
	Max    int
}

// Key builds the counter key for this bucket and the given identity parts,
// e.g. "comment:<email>:<token>".
func (b Bucket) Key(parts ...string) string {
	return b.Name + ":" + strings.Join(parts, ":")
}

// Buckets holds every request budget the public and authenticated endpoints
// consult. All windows default to one hour; limits are configuration, read
// once at startup.
type Buckets struct {
	ReviewFetch        Bucket // per share token
	InvoiceEmail       Bucket // per user
	ReviewRequestEmail Bucket // per user
	Comment            Bucket // per email + token
	StatusChange       Bucket // per email + token
	Upload             Bucket // per user
}

// LoadBuckets reads bucket limits from the environment with the product's
// default budgets.
func LoadBuckets() Buckets {
	return Buckets{
		ReviewFetch:        bucketFromEnv("review", "RATE_LIMIT_REVIEW_FETCH", 100),
		InvoiceEmail:       bucketFromEnv("invoice_email", "RATE_LIMIT_INVOICE_EMAIL", 50),
		ReviewRequestEmail: bucketFromEnv("review_email", "RATE_LIMIT_REVIEW_EMAIL", 30),
		Comment:            bucketFromEnv("comment", "RATE_LIMIT_COMMENT", 20),
		StatusChange:       bucketFromEnv("status", "RATE_LIMIT_STATUS", 5),
		Upload:             bucketFromEnv("upload", "RATE_LIMIT_UPLOAD", 20),
	}
}

func bucketFromEnv(name, envKey string, defaultMax int) Bucket {
	max := defaultMax
	if raw := strings.TrimSpace(env.GetEnv(envKey, "")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			max = parsed
		}
	}
	window := time.Hour
	if raw := strings.TrimSpace(env.GetEnv(envKey+"_WINDOW", "")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			window = parsed
		}
	}
	return Bucket{Name: name, Window: window, Max: max}
}
