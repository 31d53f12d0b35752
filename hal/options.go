// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"log/slog"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/iox/tomlx"
	"cogentcore.org/core/base/reflectx"
	"cogentcore.org/vhal/driver"
	"github.com/pelletier/go-toml/v2"
)

// Options configures a [Backend] and the swapchains it makes.
// Use [NewOptions] to get the defaults from the struct tags.
type Options struct {

	// Buffering is the number of frames in flight, used for
	// swapchains and default descriptor pool sizes.
	Buffering int `default:"2"`

	// PresentMode is the preferred present mode: immediate, mailbox,
	// fifo or fifo-relaxed. fifo is used when it is not supported.
	PresentMode string `default:"fifo"`

	// MaxSamples caps the multisample count; the device maximum
	// is used when it is lower.
	MaxSamples int `default:"8"`

	// Depth is whether swapchains have a depth attachment.
	Depth bool `default:"true"`

	// ColorFormat is the preferred swapchain format.
	ColorFormat string `default:"rgba8-srgb"`

	// ClearColor is the RGBA color that rendering clears to;
	// [NewOptions] sets it to opaque black.
	ClearColor [4]float32

	// LogLevel is the slog level name: debug, info, warn or error.
	LogLevel string `default:"info"`
}

// NewOptions returns options set to their defaults.
func NewOptions() *Options {
	o := &Options{ClearColor: [4]float32{0, 0, 0, 1}}
	errors.Log(reflectx.SetFromDefaultTags(o))
	return o
}

// OpenOptions returns the default options overridden
// by the values in the given TOML file.
func OpenOptions(filename string) (*Options, error) {
	o := NewOptions()
	if err := tomlx.Open(o, filename); err != nil {
		return o, err
	}
	return o, o.Validate()
}

// Validate returns an error for option values that cannot be used.
func (o *Options) Validate() error {
	var errs []error
	if o.Buffering < 1 {
		errs = append(errs, preconditionf("options: Buffering must be at least 1, got %d", o.Buffering))
	}
	if o.MaxSamples < 1 {
		errs = append(errs, preconditionf("options: MaxSamples must be at least 1, got %d", o.MaxSamples))
	}
	if _, err := driver.ParsePresentMode(o.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := driver.ParseFormat(o.ColorFormat); err != nil {
		errs = append(errs, err)
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(o.LogLevel)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the LogLevel, or info if it is not valid.
func (o *Options) Level() slog.Level {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lv
}

// String returns the options in TOML format.
func (o *Options) String() string {
	b, err := toml.Marshal(o)
	if err != nil {
		return errors.Log(err).Error()
	}
	return strings.TrimSpace(string(b))
}
