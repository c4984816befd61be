package session

// Store persists per-user and per-channel relay state.
//
// CurrentChannel/LastIndex return ok=false when no record exists yet: a user
// with no session posts to the default channel, and a channel with no relay
// state triggers the one-time index bootstrap.
// Implementations must guarantee per-key atomicity; cross-key transactions
// are not required.
type Store interface {
	CurrentChannel(userID int64) (channelID int64, ok bool, err error)
	SetCurrentChannel(userID, channelID int64) error

	LastIndex(channelID int64) (index int64, ok bool, err error)
	SetLastIndex(channelID, index int64) error
}
