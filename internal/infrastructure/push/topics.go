package push

import (
	"fmt"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// Topic naming is the one place the legacy wire vocabulary survives.
// Most entities use "<entity>:<kind>" ("coupon:created"), but orders
// kept their historical names ("newOrder", "orderStatusUpdated") and
// older admin builds emit present-tense intent names ("coupon:create").
// Inbound subscriptions accept every spelling; outbound frames always
// use the canonical one.

func outboundTopic(entity string, kind livelist.EventKind) string {
	if entity == "order" {
		switch kind {
		case livelist.EventCreated:
			return "newOrder"
		case livelist.EventStatusChanged:
			return "orderStatusUpdated"
		}
	}
	return fmt.Sprintf("%s:%s", entity, kind)
}

func inboundTopics(entity string, kind livelist.EventKind) []string {
	topics := []string{outboundTopic(entity, kind)}

	if entity == "order" && kind == livelist.EventStatusChanged {
		topics = append(topics, "orderStatusChanged")
	}

	// Legacy intent spellings
	switch kind {
	case livelist.EventCreated:
		topics = append(topics, entity+":create")
	case livelist.EventUpdated:
		topics = append(topics, entity+":update")
	case livelist.EventDeleted:
		topics = append(topics, entity+":delete")
	}

	return topics
}
