package daemon

const (
	// MaximumIPCMessageSize specifies the maximum message size that will be
	// allowed over daemon IPC channels.
	MaximumIPCMessageSize = 25 * 1024 * 1024
)
