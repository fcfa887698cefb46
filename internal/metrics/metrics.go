package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatcenter_webhook_events_total",
		Help: "Inbound webhook events by type and result.",
	}, []string{"type", "result"})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatcenter_broadcasts_total",
		Help: "Broadcast attempts by delivery tier and result.",
	}, []string{"tier", "result"})

	OutboundSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatcenter_outbound_sends_total",
		Help: "Outbound send pipeline results.",
	}, []string{"type", "result"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatcenter_connected_clients",
		Help: "Currently connected operator sockets.",
	})

	RoomSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatcenter_room_subscriptions",
		Help: "Total live room memberships across connections.",
	})
)
