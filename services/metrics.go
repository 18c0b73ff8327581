package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	actionsReported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_actions_total",
			Help: "Total number of scored user actions",
		},
		[]string{"action"},
	)
	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_points_awarded_total",
			Help: "Total points awarded, by source",
		},
		[]string{"source"},
	)
	badgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_badges_awarded_total",
			Help: "Total badges awarded, by category",
		},
		[]string{"category"},
	)
	levelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_level_ups_total",
			Help: "Total level-up transitions",
		},
	)
	referralsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_referrals_credited_total",
			Help: "Total referrals credited to referrers",
		},
	)
	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_notifications_sent_total",
			Help: "Total push notifications delivered",
		},
		[]string{"type"},
	)
	notificationsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_notifications_suppressed_total",
			Help: "Total push notifications muted by user preferences",
		},
		[]string{"type"},
	)
)

// InitMetrics registers the engagement metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(actionsReported)
	prometheus.MustRegister(pointsAwarded)
	prometheus.MustRegister(badgesAwarded)
	prometheus.MustRegister(levelUps)
	prometheus.MustRegister(referralsCredited)
	prometheus.MustRegister(notificationsSent)
	prometheus.MustRegister(notificationsSuppressed)
}
