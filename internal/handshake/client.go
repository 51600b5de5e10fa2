package handshake

import (
	"context"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/ble/protocol"
	"github.com/chaz8081/gatt-welcome/internal/config"
)

// Client finds the configured peer by address and writes the message to
// every writable characteristic it exposes.
type Client struct {
	gw   ble.Gateway
	cfg  *config.Config
	opts Options
}

// NewClient creates a client. cfg must already be validated.
func NewClient(gw ble.Gateway, cfg *config.Config, opts Options) *Client {
	return &Client{gw: gw, cfg: cfg, opts: opts}
}

// Run executes one session. Write failures are reported per characteristic
// in the result and do not fail the session.
func (c *Client) Run(ctx context.Context) Result {
	s := newSession(RoleClient, c.opts)

	adapters, err := c.gw.Adapters()
	if err != nil {
		return s.fail(KindSetup, "enumerate adapters", err)
	}
	adapter, err := ble.FirstPowered(adapters)
	if err != nil {
		return s.fail(KindSetup, "select adapter", err)
	}
	s.log.Info("using adapter", "adapter", adapter.ID, "address", adapter.Address)
	if err := ctx.Err(); err != nil {
		return s.fail(KindCanceled, "scan", err)
	}

	s.transition(StateScanning, "scanning for server", "duration", c.cfg.Client.ScanDuration)
	peers, err := c.gw.Scan(ctx, adapter, c.cfg.Client.ScanDuration)
	if err != nil {
		return s.fail(KindDiscovery, "scan", err)
	}
	s.log.Info("devices found", "count", len(peers))

	peer, err := SelectByAddress(peers, c.cfg.Client.TargetAddress)
	if err != nil {
		return s.fail(KindDiscovery, "select peer", err)
	}
	for _, p := range peers {
		if p.Address != peer.Address {
			s.log.Debug("skipping peripheral", "peer", p.Address, "name", p.Name)
		}
	}

	s.transition(StateConnecting, "connecting", "peer", peer.Address, "name", peer.Name)
	conn, err := c.gw.Connect(ctx, peer)
	if err != nil {
		return s.fail(KindConnect, "connect", err)
	}
	s.own(conn)
	s.log.Info("connected", "peer", peer.Address)

	s.transition(StateCapabilityCheck, "discovering services")
	services, err := conn.Services()
	if err != nil {
		return s.fail(KindIntrospection, "discover services", err)
	}

	s.transition(StateDispatching, "sending message", "message", c.cfg.Client.Message)
	s.res.Writes = c.dispatch(s, conn, services)

	failed := len(s.res.FailedWrites())
	if len(s.res.Writes) == 0 {
		s.log.Warn("peer exposes no writable characteristic")
	} else if failed == 0 {
		s.ok("message sent", "writes", len(s.res.Writes))
	} else {
		s.log.Warn("message sent with failures", "writes", len(s.res.Writes), "failed", failed)
	}
	return s.finish(OutcomeSuccess)
}

// dispatch writes the payload to every writable characteristic of every
// service. A failed write is recorded and the fan-out carries on.
func (c *Client) dispatch(s *session, conn ble.Connection, services []ble.Service) []WriteReport {
	payload := protocol.Encode(c.cfg.Client.Message)
	var reports []WriteReport
	for _, svc := range services {
		s.log.Info("service", "uuid", svc.UUID)
		for _, ch := range svc.Characteristics {
			if !ch.Caps.Writable() {
				s.log.Warn("characteristic not writable, is the server program running?",
					"service", svc.UUID, "char", ch.UUID, "caps", ch.Caps.String())
				continue
			}

			mode, _ := ch.Caps.WriteMode()
			report := WriteReport{Service: svc.UUID, Char: ch.UUID, Mode: mode}
			if err := conn.Write(svc.UUID, ch.UUID, payload, mode); err != nil {
				report.Err = &Error{Kind: KindWrite, Op: "write " + ch.UUID, Err: err}
				s.log.Error("write failed", "service", svc.UUID, "char", ch.UUID, "error", err)
			} else {
				s.log.Info("sent message", "service", svc.UUID, "char", ch.UUID, "mode", mode.String())
			}
			reports = append(reports, report)
		}
	}
	return reports
}
