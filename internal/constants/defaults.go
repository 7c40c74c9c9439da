package constants

// Default polling and retry configuration values
const (
	DefaultPollIntervalSec  = 20
	DefaultRouterTimeoutSec = 30
	DefaultRetryBackoffMs   = 1000
	DefaultMaxBackoffMs     = 60000
	DefaultMaxAttempts      = 5
)

// Default router configuration values
const (
	DefaultRouterHost = "192.168.1.1"
	DefaultRouterPort = 80
)

// Default MQTT configuration values
const (
	DefaultMQTTQoS             = 1
	DefaultMQTTKeepAliveSec    = 30
	DefaultMQTTQuiesceMs       = 500
	DefaultMQTTTokenTimeoutSec = 10
)

// Default status server values
const (
	DefaultServerPort            = 8090
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
)

// Bus topic layout. Everything lives under TopicPrefix; the command
// subscriptions use a single-level wildcard so the number or group name is
// exactly one topic segment.
const (
	TopicPrefix = "service/rutos_sms"

	TopicReceived = TopicPrefix + "/received"
	TopicDeleted  = TopicPrefix + "/deleted"
	TopicOnline   = TopicPrefix + "/online"

	TopicSendSinglePrefix = TopicPrefix + "/send/single/"
	TopicSendGroupPrefix  = TopicPrefix + "/send/group/"
	TopicSentSinglePrefix = TopicPrefix + "/sent/single/"
	TopicSentGroupPrefix  = TopicPrefix + "/sent/group/"

	SubscriptionSendSingle = TopicSendSinglePrefix + "+"
	SubscriptionSendGroup  = TopicSendGroupPrefix + "+"
	SubscriptionDelete     = TopicPrefix + "/delete"
)
