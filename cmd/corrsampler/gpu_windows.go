//go:build windows

package main

import (
	"github.com/born-ml/correlation/internal/backend/webgpu"
	"github.com/born-ml/correlation/internal/correlation"
)

func openWebGPU() (correlation.Backend, func(), error) {
	b, err := webgpu.New()
	if err != nil {
		return nil, nil, err
	}
	return b, b.Release, nil
}
