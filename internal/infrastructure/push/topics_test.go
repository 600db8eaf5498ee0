package push

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

func TestOutboundTopic(t *testing.T) {
	tests := []struct {
		entity string
		kind   livelist.EventKind
		want   string
	}{
		{"coupon", livelist.EventCreated, "coupon:created"},
		{"coupon", livelist.EventUpdated, "coupon:updated"},
		{"coupon", livelist.EventDeleted, "coupon:deleted"},
		{"cart", livelist.EventDeleted, "cart:deleted"},
		{"order", livelist.EventCreated, "newOrder"},
		{"order", livelist.EventStatusChanged, "orderStatusUpdated"},
		{"order", livelist.EventUpdated, "order:updated"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, outboundTopic(tt.entity, tt.kind))
	}
}

func TestInboundTopics_AcceptLegacySpellings(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"coupon:created", "coupon:create"},
		inboundTopics("coupon", livelist.EventCreated))

	assert.ElementsMatch(t,
		[]string{"orderStatusUpdated", "orderStatusChanged"},
		inboundTopics("order", livelist.EventStatusChanged))

	assert.ElementsMatch(t,
		[]string{"coupon:deleted", "coupon:delete"},
		inboundTopics("coupon", livelist.EventDeleted))
}
