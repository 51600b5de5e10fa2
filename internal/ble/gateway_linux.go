//go:build linux

package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"
)

// SystemGateway drives BlueZ through tinygo-org/bluetooth. Adapter
// enumeration and characteristic flags come straight from the BlueZ object
// manager because tinygo does not expose them.
type SystemGateway struct {
	bus *dbus.Conn

	// mu protects adapters and scanned.
	mu       sync.Mutex
	adapters map[string]*bluetooth.Adapter // keyed by controller id
	scanned  map[string]scannedPeer        // keyed by normalized address
}

// stopScanRetry is how often a pending StopScan is retried while the scan
// is still starting.
const stopScanRetry = 10 * time.Millisecond

type scannedPeer struct {
	adapterID string
	adapter   *bluetooth.Adapter
	address   bluetooth.Address
}

// NewSystemGateway connects to the system bus.
func NewSystemGateway() (*SystemGateway, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: connect system bus: %w", err)
	}
	return &SystemGateway{
		bus:      bus,
		adapters: make(map[string]*bluetooth.Adapter),
		scanned:  make(map[string]scannedPeer),
	}, nil
}

func (g *SystemGateway) managedObjects() (managedObjects, error) {
	objs := make(managedObjects)
	obj := g.bus.Object(bluezBus, "/")
	if err := obj.Call(objectManagerMethod, 0).Store(&objs); err != nil {
		return nil, err
	}
	return objs, nil
}

func (g *SystemGateway) Adapters() ([]AdapterInfo, error) {
	objs, err := g.managedObjects()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	adapters := parseAdapters(objs)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	return adapters, nil
}

func (g *SystemGateway) adapter(id string) (*bluetooth.Adapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if a, ok := g.adapters[id]; ok {
		return a, nil
	}
	a := bluetooth.NewAdapter(id)
	if err := a.Enable(); err != nil {
		return nil, err
	}
	g.adapters[id] = a
	return a, nil
}

func (g *SystemGateway) Scan(ctx context.Context, info AdapterInfo, duration time.Duration) ([]Peer, error) {
	a, err := g.adapter(info.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: enable %s: %v", ErrScanFailed, info.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var mu sync.Mutex
	var peers []Peer
	found := make(map[string]scannedPeer)

	done := make(chan struct{})
	go stopWhenDone(ctx, done, a.StopScan, stopScanRetry)

	err = a.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := NormalizeAddress(result.Address.String())
		mu.Lock()
		defer mu.Unlock()
		if _, ok := found[addr]; ok {
			return
		}
		found[addr] = scannedPeer{adapterID: info.ID, adapter: a, address: result.Address}
		peers = append(peers, Peer{
			Address: addr,
			Name:    result.LocalName(),
			RSSI:    int(result.RSSI),
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}

	// Handles from earlier scans are stale from here on.
	g.mu.Lock()
	g.scanned = found
	g.mu.Unlock()
	return peers, nil
}

func (g *SystemGateway) Connect(ctx context.Context, peer Peer) (Connection, error) {
	g.mu.Lock()
	sp, ok := g.scanned[NormalizeAddress(peer.Address)]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the current scan results", ErrConnectFailed, peer.Address)
	}

	// Connect blocks with its own timeout; only the wait honours ctx.
	device, err := awaitConnect(ctx,
		func() (bluetooth.Device, error) {
			return sp.adapter.Connect(sp.address, bluetooth.ConnectionParams{})
		},
		func(d bluetooth.Device) error { return d.Disconnect() },
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, peer.Address, err)
	}
	return &systemConnection{
		peer:  peer,
		path:  devicePath(sp.adapterID, peer.Address),
		dev:   device,
		objs:  g.managedObjects,
		chars: newCharTable(g),
	}, nil
}

// WriteRequest issues an acknowledged write to a characteristic object.
func (g *SystemGateway) WriteRequest(path dbus.ObjectPath, data []byte) error {
	opts := map[string]dbus.Variant{"type": dbus.MakeVariant("request")}
	return g.bus.Object(bluezBus, path).Call(writeValueMethod, 0, data, opts).Err
}

// Compile-time check that SystemGateway implements Gateway.
var _ Gateway = (*SystemGateway)(nil)

type systemConnection struct {
	peer  Peer
	path  dbus.ObjectPath
	dev   bluetooth.Device
	objs  func() (managedObjects, error)
	chars *charTable
}

func (c *systemConnection) Peer() Peer { return c.peer }

func (c *systemConnection) Services() ([]Service, error) {
	svcs, err := c.dev.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntrospectionFailed, err)
	}
	objs, err := c.objs()
	if err != nil {
		return nil, fmt.Errorf("%w: read characteristic flags: %v", ErrIntrospectionFailed, err)
	}
	known := parseCharacteristics(objs, c.path)

	services := make([]Service, 0, len(svcs))
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: service %s: %v", ErrIntrospectionFailed, svc.UUID(), err)
		}
		out := Service{UUID: svc.UUID().String()}
		for i := range chars {
			charUUID := chars[i].UUID().String()
			obj := known[newCharKey(out.UUID, charUUID)]
			c.chars.put(out.UUID, charUUID, charHandle{gatt: &chars[i], path: obj.path})
			out.Characteristics = append(out.Characteristics, Characteristic{UUID: charUUID, Caps: obj.caps})
		}
		services = append(services, out)
	}
	return services, nil
}

func (c *systemConnection) Write(serviceUUID, charUUID string, data []byte, mode WriteMode) error {
	return c.chars.write(serviceUUID, charUUID, data, mode)
}

func (c *systemConnection) Subscribe(serviceUUID, charUUID string, cb func([]byte)) error {
	return c.chars.subscribe(serviceUUID, charUUID, cb)
}

func (c *systemConnection) Unsubscribe(serviceUUID, charUUID string) error {
	return c.chars.unsubscribe(serviceUUID, charUUID)
}

func (c *systemConnection) Disconnect() error {
	return c.dev.Disconnect()
}

var (
	_ requestWriter = (*SystemGateway)(nil)
	_ gattChar      = (*bluetooth.DeviceCharacteristic)(nil)
)
