package blob

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
)

var ErrConfParamMissing = errors.New("missing required configuration parameter")

// Config holds connection parameters of an S3-compatible object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL is the base of the URLs handed to clients. When empty the
	// object URL is built from Endpoint and Bucket.
	PublicURL string

	// Transport overrides the HTTP transport of the client.
	Transport http.RoundTripper
}

// NewConfig reads the S3_* environment variables. It returns ErrConfParamMissing
// when S3_ENDPOINT is unset so callers can run without an image store.
func NewConfig() (*Config, error) {
	conf := Config{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Bucket:    os.Getenv("S3_BUCKET"),
		Region:    os.Getenv("S3_REGION"),
		PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	if conf.Endpoint == "" {
		return nil, fmt.Errorf("%w: S3_ENDPOINT", ErrConfParamMissing)
	}
	if conf.Bucket == "" {
		return nil, fmt.Errorf("%w: S3_BUCKET", ErrConfParamMissing)
	}

	if v := os.Getenv("S3_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid S3_USE_SSL value %q: %w", v, err)
		}
		conf.UseSSL = useSSL
	}

	return &conf, nil
}
