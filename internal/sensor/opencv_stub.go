//go:build !opencv

package sensor

import (
	"context"
	"errors"
)

// OpenCVSource is not available without the opencv build tag.
type OpenCVSource struct{}

// NewOpenCVSource returns an error when built without the opencv tag.
func NewOpenCVSource(cfg OpenCVConfig) (*OpenCVSource, error) {
	return nil, errors.New("opencv source not compiled in (build with -tags opencv)")
}

// Acquire is not implemented without opencv support.
func (s *OpenCVSource) Acquire(ctx context.Context) (Sample, error) {
	return Sample{}, errors.New("opencv source not compiled in")
}

// Close is not implemented without opencv support.
func (s *OpenCVSource) Close() error {
	return nil
}
