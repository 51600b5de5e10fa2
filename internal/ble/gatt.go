package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// gattChar is the part of a discovered tinygo characteristic used after
// introspection. It is held by pointer: tinygo keeps the notification
// state inside the value, so Subscribe and Unsubscribe must reach the same
// one.
type gattChar interface {
	WriteWithoutResponse(p []byte) (int, error)
	EnableNotifications(callback func(buf []byte)) error
}

// requestWriter sends an acknowledged write to a characteristic object.
type requestWriter interface {
	WriteRequest(path dbus.ObjectPath, data []byte) error
}

type charHandle struct {
	gatt gattChar
	path dbus.ObjectPath // empty when BlueZ did not list the object
}

// charTable holds the characteristic handles of one connection.
type charTable struct {
	req requestWriter

	mu      sync.Mutex
	handles map[charKey]charHandle
}

func newCharTable(req requestWriter) *charTable {
	return &charTable{req: req, handles: make(map[charKey]charHandle)}
}

func (t *charTable) put(serviceUUID, charUUID string, h charHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[newCharKey(serviceUUID, charUUID)] = h
}

func (t *charTable) lookup(serviceUUID, charUUID string) (charHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[newCharKey(serviceUUID, charUUID)]
	if !ok {
		return charHandle{}, fmt.Errorf("%w: %s/%s", ErrUnknownAttribute, serviceUUID, charUUID)
	}
	return h, nil
}

// write sends data in the requested mode. tinygo only issues WriteValue
// without a type option, which BlueZ turns into a request when the
// characteristic allows one, so acknowledged writes go over D-Bus with an
// explicit "request" type whenever the object path is known.
func (t *charTable) write(serviceUUID, charUUID string, data []byte, mode WriteMode) error {
	h, err := t.lookup(serviceUUID, charUUID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if mode == WriteWithResponse && h.path != "" && t.req != nil {
		err = t.req.WriteRequest(h.path, data)
	} else {
		_, err = h.gatt.WriteWithoutResponse(data)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, charUUID, err)
	}
	return nil
}

func (t *charTable) subscribe(serviceUUID, charUUID string, cb func([]byte)) error {
	h, err := t.lookup(serviceUUID, charUUID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	if err := h.gatt.EnableNotifications(cb); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSubscribeFailed, charUUID, err)
	}
	return nil
}

// unsubscribe stops notifications. A nil callback makes tinygo send
// StopNotify and drop its signal channel.
func (t *charTable) unsubscribe(serviceUUID, charUUID string) error {
	h, err := t.lookup(serviceUUID, charUUID)
	if err != nil {
		return err
	}
	return h.gatt.EnableNotifications(nil)
}

// awaitConnect runs dial on its own goroutine and waits for it or for ctx.
// A dial that succeeds after ctx ended is closed, so no link outlives an
// abandoned attempt.
func awaitConnect[D any](ctx context.Context, dial func() (D, error), closeFn func(D) error) (D, error) {
	var zero D
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		dev D
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dev, err := dial()
		ch <- result{dev, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				_ = closeFn(r.dev)
			}
		}()
		return zero, ctx.Err()
	case r := <-ch:
		return r.dev, r.err
	}
}

// stopWhenDone calls stop once ctx ends. stop fails until the scan is
// running, so it is retried every interval until it succeeds or done closes.
func stopWhenDone(ctx context.Context, done <-chan struct{}, stop func() error, interval time.Duration) {
	select {
	case <-ctx.Done():
	case <-done:
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for stop() != nil {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
