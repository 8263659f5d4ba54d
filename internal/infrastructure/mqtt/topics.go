package mqtt

import "fmt"

// Topic prefixes for the piezocore MQTT namespace.
//
// All topics live under a single flat scheme: piezocore/{category}/...
const (
	// TopicPrefix is the base for all piezocore topics.
	TopicPrefix = "piezocore"

	// TopicPrefixState is the base for axis state topics.
	TopicPrefixState = "piezocore/state"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "piezocore/system"
)

// Topics provides builders for piezocore MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.AxisState("x")
//	// Returns: "piezocore/state/axis/x"
type Topics struct{}

// AxisState returns the topic for periodic axis state snapshots.
//
// Example: piezocore/state/axis/x
func (Topics) AxisState(axis string) string {
	return fmt.Sprintf("%s/axis/%s", TopicPrefixState, axis)
}

// AllAxisStates returns a pattern matching the state topics of every axis.
// Intended for external consumers subscribing to the full state stream.
//
// Pattern: piezocore/state/axis/+
func (Topics) AllAxisStates() string {
	return fmt.Sprintf("%s/axis/+", TopicPrefixState)
}

// AxisEvent returns the topic for discrete axis events such as command
// rejections or poll faults.
//
// Example: piezocore/event/axis/y
func (Topics) AxisEvent(axis string) string {
	return fmt.Sprintf("%s/event/axis/%s", TopicPrefix, axis)
}

// SystemStatus returns the service status topic. The birth message and the
// last will both publish here.
//
// Example: piezocore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all piezocore topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: piezocore/#
func (Topics) AllTopics() string {
	return "piezocore/#"
}
