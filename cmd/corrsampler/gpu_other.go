//go:build !windows

package main

import (
	"fmt"

	"github.com/born-ml/correlation/internal/correlation"
)

func openWebGPU() (correlation.Backend, func(), error) {
	return nil, nil, fmt.Errorf("%w: webgpu backend is only built on windows", correlation.ErrUnsupportedConfiguration)
}
