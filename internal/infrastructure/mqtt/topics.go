package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "dropdash"

// Topics builds topic names under a common prefix.
//
//	topics := mqtt.NewTopics("lab1")
//	topics.Telemetry("electrode-state") // "lab1/telemetry/electrode-state"
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix. Surrounding slashes are
// trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root segment.
func (t Topics) Prefix() string { return t.prefix }

// Status is the retained relay availability topic.
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// Telemetry is the topic for events of one telemetry kind.
func (t Topics) Telemetry(kind string) string {
	return t.prefix + "/telemetry/" + kind
}

// AllTelemetry matches every telemetry topic.
func (t Topics) AllTelemetry() string {
	return t.prefix + "/telemetry/#"
}

// Selection is the topic for electrode activation requests issued by the
// operator.
func (t Topics) Selection() string {
	return t.prefix + "/selection"
}
