// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Build when the target OS or architecture are not supported
//go:build (!linux && !darwin) || (!amd64 && !arm64)

package guestdl

import (
	"github.com/nativesim/go-guestdl/internal/support"
	"go.uber.org/zap"
)

// NewHostLoader reports why the host dynamic loader cannot be used on this
// target.
func NewHostLoader(*zap.Logger) (NativeLoader, error) {
	return nil, support.Errors()
}
