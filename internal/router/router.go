// Package router classifies an incoming turn into one of a closed set of
// travel topics and selects the handler branch to run. It is a pure
// classification step: no I/O, no failure path beyond reporting an
// already-invalid topic.
package router

import "fmt"

// Topic is the category of a travel query.
type Topic string

const (
	TopicDestinations Topic = "destinations"
	TopicWeather      Topic = "weather"
	TopicPacking      Topic = "packing"
	TopicUnknown      Topic = "unknown"
)

// Branch is the handler branch a topic maps to. Weather and packing share
// a branch: both need a location, activities, and a date range.
type Branch string

const (
	BranchDestinations   Branch = "destinations"
	BranchWeatherPacking Branch = "weather_packing"
)

// InvalidTopicError is returned in single-handler mode when the caller's
// topic is absent or unrecognized.
type InvalidTopicError struct {
	Raw string
}

func (e *InvalidTopicError) Error() string {
	if e.Raw == "" {
		return "topic is required"
	}
	return fmt.Sprintf("unknown topic %q", e.Raw)
}

// Classify maps the caller-supplied topic string to a terminal topic.
// Anything unrecognized, including the empty string, maps to unknown.
func Classify(raw string) Topic {
	switch raw {
	case string(TopicDestinations):
		return TopicDestinations
	case string(TopicWeather):
		return TopicWeather
	case string(TopicPacking):
		return TopicPacking
	default:
		return TopicUnknown
	}
}

// Route classifies raw and resolves the branch for a turn. In
// single-handler mode an unknown topic is a hard validation failure. In
// pipeline mode it is redirected to the destinations branch; defaulted
// tells the caller the fallback was applied so it is never silently
// swallowed.
func Route(raw string, pipeline bool) (topic Topic, branch Branch, defaulted bool, err error) {
	topic = Classify(raw)
	switch topic {
	case TopicDestinations:
		return topic, BranchDestinations, false, nil
	case TopicWeather, TopicPacking:
		return topic, BranchWeatherPacking, false, nil
	default:
		if pipeline {
			return TopicDestinations, BranchDestinations, true, nil
		}
		return topic, "", false, &InvalidTopicError{Raw: raw}
	}
}
