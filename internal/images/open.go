package images

import (
	"context"
	"fmt"

	"github.com/safar/vegbox/internal/config"
)

// Open builds the Store named by cfg.Driver.
func Open(ctx context.Context, cfg config.ImagesConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown image driver %q", cfg.Driver)
	}
}
