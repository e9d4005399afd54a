package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateAccountMessage]   = (*CreateAccountCommand)(nil)
	_ gocmd.Commander[RemoveAccountMessage]   = (*RemoveAccountCommand)(nil)
	_ gocmd.Commander[RestoreAccountsMessage] = (*RestoreAccountsCommand)(nil)
	_ gocmd.Commander[SendTextMessage]        = (*SendTextCommand)(nil)
	_ gocmd.Commander[SubscribeMessage]       = (*SubscribeCommand)(nil)
)
