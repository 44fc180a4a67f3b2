package models

import "fmt"

// Metric is a stored usage counter name.
type Metric string

const (
	MetricUniqueVisitors Metric = "unique_visitors"
	MetricWatchCount     Metric = "watch_count"
	MetricTMDBRequests   Metric = "tmdb_requests"
	MetricUserSignups    Metric = "user_signups"
)

// TrackEvent is an event name accepted by the tracking endpoint.
type TrackEvent string

const (
	EventUniqueVisitor TrackEvent = "unique_visitor"
	EventWatch         TrackEvent = "watch"
	EventTMDBRequest   TrackEvent = "tmdb_request"
	EventUserSignup    TrackEvent = "user_signup"
)

// Metric returns the counter an event increments.
func (e TrackEvent) Metric() (Metric, error) {
	switch e {
	case EventUniqueVisitor:
		return MetricUniqueVisitors, nil
	case EventWatch:
		return MetricWatchCount, nil
	case EventTMDBRequest:
		return MetricTMDBRequests, nil
	case EventUserSignup:
		return MetricUserSignups, nil
	default:
		return "", fmt.Errorf("unknown event %q", string(e))
	}
}
