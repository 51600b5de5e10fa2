package handshake

import (
	"context"
	"strings"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/config"
)

// Server finds a peer exposing the configured characteristic, subscribes to
// it and waits a bounded time for the expected message.
type Server struct {
	gw   ble.Gateway
	cfg  *config.Config
	opts Options
}

// NewServer creates a server. cfg must already be validated.
func NewServer(gw ble.Gateway, cfg *config.Config, opts Options) *Server {
	return &Server{gw: gw, cfg: cfg, opts: opts}
}

// Run executes one session on the adapter with the given address.
func (sv *Server) Run(ctx context.Context, adapterAddress string) Result {
	s := newSession(RoleServer, sv.opts)
	proto := sv.cfg.Protocol

	if strings.TrimSpace(adapterAddress) == "" {
		return s.fail(KindSetup, "select adapter", ErrMissingAdapterAddress)
	}
	adapters, err := sv.gw.Adapters()
	if err != nil {
		return s.fail(KindSetup, "enumerate adapters", err)
	}
	adapter, err := ble.FindAdapter(adapters, adapterAddress)
	if err != nil {
		return s.fail(KindSetup, "select adapter "+ble.NormalizeAddress(adapterAddress), err)
	}
	if !adapter.Powered {
		return s.fail(KindSetup, "select adapter "+adapter.ID, ble.ErrBluetoothDisabled)
	}
	s.log.Info("using adapter", "adapter", adapter.ID, "address", adapter.Address)
	if err := ctx.Err(); err != nil {
		return s.fail(KindCanceled, "scan", err)
	}

	s.transition(StateScanning, "scanning for peripherals", "duration", sv.cfg.Server.ScanDuration)
	peers, err := sv.gw.Scan(ctx, adapter, sv.cfg.Server.ScanDuration)
	if err != nil {
		return s.fail(KindDiscovery, "scan", err)
	}
	for _, p := range peers {
		s.log.Info("found peripheral", "peer", p.Address, "name", p.Name, "rssi", p.RSSI)
	}

	sel := CapabilitySelector{
		Gateway:     sv.gw,
		ServiceUUID: proto.ServiceUUID,
		CharUUID:    proto.CharUUID,
		Logger:      s.log,
		OnConnect: func(p ble.Peer) {
			s.transition(StateConnecting, "connecting", "peer", p.Address)
		},
		OnInspect: func(p ble.Peer) {
			s.transition(StateCapabilityCheck, "inspecting services", "peer", p.Address)
		},
	}
	cand, err := sel.Select(ctx, peers)
	if err != nil {
		if ctx.Err() != nil {
			return s.fail(KindCanceled, "select peer", err)
		}
		return s.fail(KindDiscovery, "select peer", err)
	}
	s.own(cand.Conn)
	s.log.Info("connected to peripheral", "peer", cand.Peer.Address, "name", cand.Peer.Name)
	if !cand.Char.Caps.Has(ble.CapNotify) {
		s.log.Warn("characteristic does not advertise notify", "char", cand.Char.UUID, "caps", cand.Char.Caps.String())
	}

	s.transition(StateSubscribing, "subscribing to notifications", "service", proto.ServiceUUID, "char", proto.CharUUID)
	rv := newRendezvous(proto.ExpectedText, s.log)
	if err := cand.Conn.Subscribe(proto.ServiceUUID, proto.CharUUID, rv.notify); err != nil {
		return s.fail(KindSubscribe, "subscribe", err)
	}
	s.subscribed = true
	s.svcUUID, s.charUUID = proto.ServiceUUID, proto.CharUUID

	s.transition(StateWaiting, "waiting for expected message", "timeout", sv.cfg.Server.WaitTimeout)
	received, err := rv.wait(ctx, sv.cfg.Server.PollInterval, sv.cfg.Server.MaxPolls())
	s.res.Received, s.res.Notifications = rv.result()

	switch {
	case received:
		s.ok("received expected message", "payload", s.res.Received)
		return s.finish(OutcomeSuccess)
	case err != nil:
		return s.fail(KindCanceled, "wait", err)
	default:
		s.log.Warn("timeout waiting for expected message", "notifications", s.res.Notifications)
		return s.finish(OutcomeTimeout)
	}
}
