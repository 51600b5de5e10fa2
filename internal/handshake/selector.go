package handshake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/gatt-welcome/internal/ble"
)

// SelectByAddress returns the first peer whose address equals target.
func SelectByAddress(peers []ble.Peer, target string) (ble.Peer, error) {
	want := ble.NormalizeAddress(target)
	for _, p := range peers {
		if ble.NormalizeAddress(p.Address) == want {
			return p, nil
		}
	}
	return ble.Peer{}, fmt.Errorf("%w: no peer with address %s", ble.ErrPeerNotFound, want)
}

// Candidate is a peer that passed the capability check. Its connection is
// still open and now belongs to the caller.
type Candidate struct {
	Peer ble.Peer
	Conn ble.Connection
	Char ble.Characteristic
}

// CapabilitySelector finds the first peer exposing a given characteristic.
// Capabilities can only be read over a connection, so every candidate is
// connected, inspected and, if rejected, disconnected again.
type CapabilitySelector struct {
	Gateway     ble.Gateway
	ServiceUUID string
	CharUUID    string
	Logger      *slog.Logger

	// OnConnect, if set, runs before each provisional connect.
	OnConnect func(ble.Peer)
	// OnInspect, if set, runs after a successful connect, before introspection.
	OnInspect func(ble.Peer)
}

// Select walks peers in scan order. Connect and introspection failures skip
// the peer for good. It returns ErrPeerNotFound once the list is exhausted,
// or the context error if ctx ends first.
func (s CapabilitySelector) Select(ctx context.Context, peers []ble.Peer) (Candidate, error) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	for _, p := range peers {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		if s.OnConnect != nil {
			s.OnConnect(p)
		}

		conn, err := s.Gateway.Connect(ctx, p)
		if err != nil {
			log.Info("could not connect, skipping", "peer", p.Address, "error", err)
			continue
		}
		if s.OnInspect != nil {
			s.OnInspect(p)
		}

		services, err := conn.Services()
		if err != nil {
			log.Warn("service discovery failed, skipping", "peer", p.Address, "error", err)
			disconnectQuietly(log, conn)
			continue
		}

		ch, ok := ble.FindCharacteristic(services, s.ServiceUUID, s.CharUUID)
		if !ok {
			log.Info("capability mismatch, skipping", "peer", p.Address,
				"error", fmt.Errorf("%w: %s/%s not exposed", ble.ErrCapabilityMismatch, s.ServiceUUID, s.CharUUID))
			disconnectQuietly(log, conn)
			continue
		}
		return Candidate{Peer: p, Conn: conn, Char: ch}, nil
	}
	return Candidate{}, fmt.Errorf("%w: no peer exposes %s/%s", ble.ErrPeerNotFound, s.ServiceUUID, s.CharUUID)
}

func disconnectQuietly(log *slog.Logger, conn ble.Connection) {
	if err := conn.Disconnect(); err != nil {
		log.Warn("disconnect failed", "peer", conn.Peer().Address, "error", err)
	}
}
