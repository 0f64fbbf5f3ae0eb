package events

import (
	"context"
	"strings"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// Event topic constants
const (
	TopicGateCheckStarted   = "gatecheck.started"
	TopicItemUpdated        = "gatecheck.item.updated"
	TopicGateCheckCompleted = "gatecheck.completed"
	TopicGateCheckCancelled = "gatecheck.cancelled"

	// Deficiency events
	TopicDeficiencyCreated  = "gatecheck.deficiency.created"
	TopicDeficiencyResolved = "gatecheck.deficiency.resolved"

	// TopicAll matches every gate check event.
	TopicAll = "gatecheck.>"
)

// Topics lists every concrete topic the service publishes.
var Topics = []string{
	TopicGateCheckStarted,
	TopicItemUpdated,
	TopicGateCheckCompleted,
	TopicGateCheckCancelled,
	TopicDeficiencyCreated,
	TopicDeficiencyResolved,
}

// Event types

type GateCheckStarted struct {
	GateCheck *model.GateCheck `json:"gate_check"`
}

type ItemUpdated struct {
	LotID      string               `json:"lot_id"`
	Transition model.Transition     `json:"transition"`
	Item       *model.GateCheckItem `json:"item"`
	Previous   model.ItemResult     `json:"previous"`
}

type GateCheckCompleted struct {
	GateCheck *model.GateCheck `json:"gate_check"`
	// Blocking lists the codes of failed blocking items; empty when passed.
	Blocking []string `json:"blocking,omitempty"`
}

type GateCheckCancelled struct {
	GateCheck *model.GateCheck `json:"gate_check"`
	Reason    string           `json:"reason"`
}

// Deficiency events

type DeficiencyCreated struct {
	Deficiency *model.Deficiency `json:"deficiency"`
}

type DeficiencyResolved struct {
	Deficiency *model.Deficiency `json:"deficiency"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// MatchTopic reports whether a dot-separated topic matches pattern.
// "*" matches exactly one segment and a trailing ">" matches one or more.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}
