// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"fmt"

	"github.com/nativesim/go-guestdl/internal/log"
	"go.uber.org/zap"
)

// Config is the configuration of a Loader. It can be created through the use
// of options.
type Config struct {
	// PageSize is the guest page size, a power of two.
	PageSize uint64
	// Mapper places guest images. Defaults to an ELFMapper using PageSize.
	Mapper SegmentMapper
	// Native is the host dynamic loader. Defaults to NewHostLoader.
	Native NativeLoader
	// Logger receives the host loader diagnostics. Defaults to a logger
	// configured from $GUESTDL_LOG_LEVEL.
	Logger *zap.Logger
}

// Option are the configuration options of a Loader.
type Option func(*Config)

// WithPageSize is an Option that sets the guest page size.
func WithPageSize(size uint64) Option {
	return func(c *Config) {
		c.PageSize = size
	}
}

// WithSegmentMapper is an Option that sets how guest images get placed.
func WithSegmentMapper(mapper SegmentMapper) Option {
	return func(c *Config) {
		c.Mapper = mapper
	}
}

// WithNativeLoader is an Option that replaces the host dynamic loader.
func WithNativeLoader(native NativeLoader) Option {
	return func(c *Config) {
		c.Native = native
	}
}

// WithLogger is an Option that sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func newConfig(options ...Option) (Config, error) {
	config := Config{PageSize: PageSize}
	for _, option := range options {
		option(&config)
	}

	if !isPowerOfTwo(config.PageSize) {
		return Config{}, fmt.Errorf("page size %d is not a power of two", config.PageSize)
	}
	if config.Logger == nil {
		config.Logger = log.FromEnv()
	}
	if config.Mapper == nil {
		config.Mapper = ELFMapper{PageSize: config.PageSize}
	}
	if config.Native == nil {
		native, err := NewHostLoader(config.Logger)
		if err != nil {
			return Config{}, fmt.Errorf("host dynamic loader unavailable: %w", err)
		}
		config.Native = native
	}
	return config, nil
}
