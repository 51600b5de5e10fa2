package ble

import "errors"

var (
	ErrNoAdapter           = errors.New("ble: no bluetooth adapter found")
	ErrBluetoothDisabled   = errors.New("ble: bluetooth not enabled")
	ErrScanFailed          = errors.New("ble: scan failed")
	ErrConnectFailed       = errors.New("ble: connect failed")
	ErrIntrospectionFailed = errors.New("ble: service discovery failed")
	ErrWriteFailed         = errors.New("ble: write failed")
	ErrSubscribeFailed     = errors.New("ble: subscribe failed")
	ErrPeerNotFound        = errors.New("ble: no peer found")
	ErrCapabilityMismatch  = errors.New("ble: capability mismatch")
	ErrUnknownAttribute    = errors.New("ble: unknown characteristic")
	ErrUnsupportedPlatform = errors.New("ble: platform not supported")
)
