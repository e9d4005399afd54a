package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/wildcatlabs/wildcat/core"
)

var (
	_ gocmd.Querier[GetAccountMessage, core.AccountStatus]     = (*GetAccountQuery)(nil)
	_ gocmd.Querier[ListAccountsMessage, []core.AccountStatus] = (*ListAccountsQuery)(nil)
	_ gocmd.Querier[GetMessageMessage, core.MessageRecord]     = (*GetMessageQuery)(nil)
	_ gocmd.Querier[ListMessagesMessage, core.MessagePage]     = (*ListMessagesQuery)(nil)
	_ gocmd.Querier[ListSubscribersMessage, []core.Subscriber] = (*ListSubscribersQuery)(nil)
)
