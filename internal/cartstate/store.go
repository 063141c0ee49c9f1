// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package cartstate persists per-device cart history, the dashboard display
// projection, and the singleton operator setting.
//
// The store does no comparison of its own. Callers are responsible for the
// no-consecutive-duplicates rule on CartHistory; the store only guarantees
// that a device that was never written reads back as the sentinel history
// [[]]. Writes for one device are last-write-wins.
//
// Three backends share one key layout:
//
//	history:<device>   JSON CartHistory
//	display:<device>   JSON DeviceDisplayState
//	setting:master     JSON Setting
package cartstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartsense/internal/models"
)

// Store is the cart state persistence contract.
type Store interface {
	// GetHistory returns the device history, or [[]] for an unknown device.
	GetHistory(ctx context.Context, deviceID string) (models.CartHistory, error)

	// PutHistory overwrites the device history.
	PutHistory(ctx context.Context, deviceID string, history models.CartHistory) error

	// ResetHistory stores the sentinel history [[]].
	ResetHistory(ctx context.Context, deviceID string) error

	// GetDisplayState returns ErrNotFound when nothing was stored.
	GetDisplayState(ctx context.Context, deviceID string) (models.DeviceDisplayState, error)

	// PutDisplayState overwrites the device display projection.
	PutDisplayState(ctx context.Context, state models.DeviceDisplayState) error

	// GetSetting returns the stored setting, or DefaultSetting when absent.
	GetSetting(ctx context.Context) (models.Setting, error)

	// PutSetting overwrites the singleton setting.
	PutSetting(ctx context.Context, setting models.Setting) error

	Close() error
}

var (
	// ErrNotFound is returned when a display state was never written.
	ErrNotFound = errors.New("cart state not found")

	// ErrEmptyDeviceID is returned for blank device ids.
	ErrEmptyDeviceID = errors.New("device id cannot be empty")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cart state store is closed")
)

const (
	prefixHistory = "history:"
	prefixDisplay = "display:"
	keySetting    = "setting:master"
)

func historyKey(deviceID string) string { return prefixHistory + deviceID }
func displayKey(deviceID string) string { return prefixDisplay + deviceID }

func checkDevice(deviceID string) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}
	return nil
}

func encodeHistory(history models.CartHistory) ([]byte, error) {
	if len(history) == 0 {
		history = models.NewCartHistory()
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

func decodeHistory(data []byte) (models.CartHistory, error) {
	var history models.CartHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if len(history) == 0 {
		return models.NewCartHistory(), nil
	}
	for i := range history {
		if history[i] == nil {
			history[i] = models.ItemSet{}
		}
	}
	return history, nil
}

func decodeSetting(data []byte) (models.Setting, error) {
	setting := models.DefaultSetting()
	if err := json.Unmarshal(data, &setting); err != nil {
		return models.Setting{}, fmt.Errorf("decode setting: %w", err)
	}
	return setting, nil
}
