//go:build !linux

package ble

import (
	"context"
	"time"
)

// SystemGateway is only implemented on Linux, where BlueZ provides adapter
// enumeration and characteristic flags.
type SystemGateway struct{}

// NewSystemGateway always fails on this platform.
func NewSystemGateway() (*SystemGateway, error) {
	return nil, ErrUnsupportedPlatform
}

func (*SystemGateway) Adapters() ([]AdapterInfo, error) { return nil, ErrUnsupportedPlatform }

func (*SystemGateway) Scan(context.Context, AdapterInfo, time.Duration) ([]Peer, error) {
	return nil, ErrUnsupportedPlatform
}

func (*SystemGateway) Connect(context.Context, Peer) (Connection, error) {
	return nil, ErrUnsupportedPlatform
}

var _ Gateway = (*SystemGateway)(nil)
