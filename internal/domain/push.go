package domain

// PushMessage is one outbound push for one device.
type PushMessage struct {
	Token    string
	Platform string
	Title    string
	Body     string
	Data     map[string]string

	// Platform hints.
	ChannelID string // Android notification channel
	Sound     string
	Urgent    bool // high priority on Android, APNS priority 10
}
