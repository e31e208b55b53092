package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/postbox-bot/postbox/pkg/domain/types"
)

func TestNewTicketID(t *testing.T) {
	id := types.NewTicketID()
	gt.NoError(t, id.Validate())

	other := types.NewTicketID()
	gt.NotEqual(t, id, other)
}

func TestTicketIDValidate(t *testing.T) {
	gt.Error(t, types.EmptyTicketID.Validate())
	gt.Error(t, types.TicketID("not-a-uuid").Validate())
}

func TestTicketStatus(t *testing.T) {
	gt.NoError(t, types.TicketStatusOpen.Validate())
	gt.NoError(t, types.TicketStatusClosed.Validate())
	gt.Error(t, types.TicketStatus("resolved").Validate())
}
