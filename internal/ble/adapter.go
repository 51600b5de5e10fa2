// Package ble wraps the platform Bluetooth Low Energy stack behind small
// interfaces so the handshake logic can be tested without a radio.
package ble

import (
	"context"
	"strings"
	"time"
)

// AdapterInfo identifies one local Bluetooth controller.
type AdapterInfo struct {
	ID      string // platform controller id, e.g. "hci0"
	Address string // normalized MAC address
	Powered bool
}

// Peer is a remote endpoint seen during a scan. It is only valid until the
// next scan on the same gateway.
type Peer struct {
	Address string
	Name    string
	RSSI    int
}

// Characteristic describes one GATT characteristic of a connected peer.
type Characteristic struct {
	UUID string
	Caps Capability
}

// Service describes one GATT service and its characteristics.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// WriteMode selects between an acknowledged write request and a write command.
type WriteMode int

const (
	WriteWithResponse WriteMode = iota
	WriteWithoutResponse
)

func (m WriteMode) String() string {
	if m == WriteWithoutResponse {
		return "write-without-response"
	}
	return "write"
}

// Connection is a live link to one peer.
type Connection interface {
	// Peer returns the peer this connection was opened to.
	Peer() Peer
	// Services enumerates services and their characteristics.
	Services() ([]Service, error)
	// Write sends data to a characteristic.
	Write(serviceUUID, charUUID string, data []byte, mode WriteMode) error
	// Subscribe registers a callback for notifications on a characteristic.
	// The callback runs on a goroutine owned by the transport.
	Subscribe(serviceUUID, charUUID string, callback func(data []byte)) error
	// Unsubscribe stops notifications on a characteristic.
	Unsubscribe(serviceUUID, charUUID string) error
	// Disconnect terminates the connection.
	Disconnect() error
}

// Gateway abstracts the BLE hardware for testing.
type Gateway interface {
	// Adapters lists the local controllers.
	Adapters() ([]AdapterInfo, error)
	// Scan discovers peers for the given duration or until ctx is cancelled.
	// Peers are returned once each, in the order they were first seen.
	Scan(ctx context.Context, adapter AdapterInfo, duration time.Duration) ([]Peer, error)
	// Connect opens a connection to a peer from the most recent scan.
	Connect(ctx context.Context, peer Peer) (Connection, error)
}

// NormalizeAddress returns the canonical upper-case form of a MAC address.
func NormalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

// FindAdapter returns the adapter whose address matches addr.
func FindAdapter(adapters []AdapterInfo, addr string) (AdapterInfo, error) {
	want := NormalizeAddress(addr)
	for _, a := range adapters {
		if NormalizeAddress(a.Address) == want {
			return a, nil
		}
	}
	return AdapterInfo{}, ErrNoAdapter
}

// FirstPowered returns the first adapter in the list. It fails with
// ErrNoAdapter if the list is empty and ErrBluetoothDisabled if that
// adapter is powered off.
func FirstPowered(adapters []AdapterInfo) (AdapterInfo, error) {
	if len(adapters) == 0 {
		return AdapterInfo{}, ErrNoAdapter
	}
	if !adapters[0].Powered {
		return AdapterInfo{}, ErrBluetoothDisabled
	}
	return adapters[0], nil
}

// FindCharacteristic looks up a characteristic by service and characteristic
// UUID. UUIDs are compared case-insensitively.
func FindCharacteristic(services []Service, serviceUUID, charUUID string) (Characteristic, bool) {
	for _, svc := range services {
		if !strings.EqualFold(svc.UUID, serviceUUID) {
			continue
		}
		for _, ch := range svc.Characteristics {
			if strings.EqualFold(ch.UUID, charUUID) {
				return ch, true
			}
		}
	}
	return Characteristic{}, false
}
