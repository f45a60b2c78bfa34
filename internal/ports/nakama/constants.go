package nakama

// RPC ids clients call.
const (
	RpcJoinTable  = "blackjack_join_table"
	RpcPlaceBet   = "blackjack_place_bet"
	RpcAction     = "blackjack_action"
	RpcLeaveTable = "blackjack_leave_table"
	RpcListTables = "blackjack_list_tables"
)

// NotificationCodeState is the notification code of a state_update push.
// Nakama reserves codes <= 0.
const NotificationCodeState = 100

// WalletCurrency is the wallet key holding table chips.
const WalletCurrency = "chips"

// Runtime environment keys read at startup.
const (
	EnvConfigPath  = "blackjack_config"
	EnvLogLevel    = "blackjack_log_level"
	EnvLogEncoding = "blackjack_log_encoding"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeAlreadyExists      = 6
	codeResourceExhausted  = 8
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)
