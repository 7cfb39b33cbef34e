package notif

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chats_notifications_published_total",
		Help: "Notification events handed to the bus.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chats_notifications_dropped_total",
		Help: "Notification events dropped because the bus never became ready.",
	})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chats_notifications_failed_total",
		Help: "Notification events the bus rejected or that could not be encoded.",
	})
)
