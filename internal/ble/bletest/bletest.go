// Package bletest provides in-memory implementations of ble.Gateway and
// ble.Connection for tests.
package bletest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chaz8081/gatt-welcome/internal/ble"
)

// Write is one recorded characteristic write.
type Write struct {
	Service string
	Char    string
	Data    []byte
	Mode    ble.WriteMode
}

// Conn simulates a connected peer. Configure the exported fields before the
// connection is handed to the code under test.
type Conn struct {
	ServicesErr    error
	WriteErrs      map[string]error // keyed by characteristic UUID
	SubscribeErr   error
	UnsubscribeErr error
	DisconnectErr  error
	// OnSubscribe runs on its own goroutine after a successful Subscribe,
	// standing in for the remote side sending notifications.
	OnSubscribe func(c *Conn)

	peer     ble.Peer
	services []ble.Service

	mu           sync.Mutex
	writes       []Write
	callback     func([]byte)
	subscribes   int
	unsubscribes int
	disconnects  int
}

// NewConn creates a connection to peer exposing the given services.
func NewConn(peer ble.Peer, services ...ble.Service) *Conn {
	return &Conn{peer: peer, services: services, WriteErrs: make(map[string]error)}
}

func (c *Conn) Peer() ble.Peer { return c.peer }

func (c *Conn) Services() ([]ble.Service, error) {
	if c.ServicesErr != nil {
		return nil, c.ServicesErr
	}
	return c.services, nil
}

func (c *Conn) Write(serviceUUID, charUUID string, data []byte, mode ble.WriteMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, Write{Service: serviceUUID, Char: charUUID, Data: cp, Mode: mode})
	if err := c.WriteErrs[charUUID]; err != nil {
		return err
	}
	return nil
}

func (c *Conn) Subscribe(serviceUUID, charUUID string, cb func([]byte)) error {
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	if _, ok := ble.FindCharacteristic(c.services, serviceUUID, charUUID); !ok {
		return fmt.Errorf("%w: %s/%s", ble.ErrUnknownAttribute, serviceUUID, charUUID)
	}
	c.mu.Lock()
	c.callback = cb
	c.subscribes++
	c.mu.Unlock()
	if c.OnSubscribe != nil {
		go c.OnSubscribe(c)
	}
	return nil
}

func (c *Conn) Unsubscribe(_, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribes++
	c.callback = nil
	return c.UnsubscribeErr
}

func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.callback = nil
	return c.DisconnectErr
}

// Notify delivers a notification to the current subscriber, if any.
// It reports whether a subscriber received it.
func (c *Conn) Notify(data []byte) bool {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(data)
	return true
}

// Writes returns a copy of the recorded writes.
func (c *Conn) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// Subscribes returns the number of successful Subscribe calls.
func (c *Conn) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes
}

// Unsubscribes returns the number of Unsubscribe calls.
func (c *Conn) Unsubscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribes
}

// Disconnects returns the number of Disconnect calls.
func (c *Conn) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// Gateway simulates the local adapter and the peers around it.
type Gateway struct {
	AdaptersErr error
	ScanErr     error

	mu          sync.Mutex
	adapters    []ble.AdapterInfo
	peers       []ble.Peer
	conns       map[string]*Conn
	connectErrs map[string]error
	scans       []time.Duration
	connects    []string
}

// NewGateway creates a gateway with the given local adapters and no peers.
func NewGateway(adapters ...ble.AdapterInfo) *Gateway {
	return &Gateway{
		adapters:    adapters,
		conns:       make(map[string]*Conn),
		connectErrs: make(map[string]error),
	}
}

// AddPeer makes a peer visible to scans and returns the connection that
// Connect will hand out for it.
func (g *Gateway) AddPeer(peer ble.Peer, services ...ble.Service) *Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	conn := NewConn(peer, services...)
	g.peers = append(g.peers, peer)
	g.conns[ble.NormalizeAddress(peer.Address)] = conn
	return conn
}

// FailConnect makes Connect to addr fail with err.
func (g *Gateway) FailConnect(addr string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connectErrs[ble.NormalizeAddress(addr)] = err
}

func (g *Gateway) Adapters() ([]ble.AdapterInfo, error) {
	if g.AdaptersErr != nil {
		return nil, g.AdaptersErr
	}
	if len(g.adapters) == 0 {
		return nil, ble.ErrNoAdapter
	}
	return g.adapters, nil
}

func (g *Gateway) Scan(_ context.Context, _ ble.AdapterInfo, d time.Duration) ([]ble.Peer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scans = append(g.scans, d)
	if g.ScanErr != nil {
		return nil, g.ScanErr
	}
	return append([]ble.Peer(nil), g.peers...), nil
}

func (g *Gateway) Connect(_ context.Context, peer ble.Peer) (ble.Connection, error) {
	addr := ble.NormalizeAddress(peer.Address)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects = append(g.connects, addr)
	if err := g.connectErrs[addr]; err != nil {
		return nil, err
	}
	conn, ok := g.conns[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ble.ErrConnectFailed, peer.Address)
	}
	return conn, nil
}

// Conn returns the connection registered for addr.
func (g *Gateway) Conn(addr string) *Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns[ble.NormalizeAddress(addr)]
}

// Scans returns the durations of every Scan call.
func (g *Gateway) Scans() []time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]time.Duration(nil), g.scans...)
}

// Connects returns the addresses of every Connect call, in order.
func (g *Gateway) Connects() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.connects...)
}

// Service builds a service descriptor.
func Service(uuid string, chars ...ble.Characteristic) ble.Service {
	return ble.Service{UUID: strings.ToLower(uuid), Characteristics: chars}
}

// Char builds a characteristic descriptor.
func Char(uuid string, caps ble.Capability) ble.Characteristic {
	return ble.Characteristic{UUID: strings.ToLower(uuid), Caps: caps}
}

// Compile-time interface checks.
var (
	_ ble.Gateway    = (*Gateway)(nil)
	_ ble.Connection = (*Conn)(nil)
)
