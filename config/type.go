package config

type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	NATSURL  string `mapstructure:"nats_url"`
	RedisURL string `mapstructure:"redis_url"`
	Stream   Stream `mapstructure:"stream"`
}

// Stream holds the JetStream settings for the chat message log.
type Stream struct {
	Name        string `mapstructure:"name"`
	DurableName string `mapstructure:"durable_name"`
}

// WithDefaults fills in the stream settings most deployments never touch.
func (c Config) WithDefaults() Config {
	if c.Stream.Name == "" {
		c.Stream.Name = "CHAT_MESSAGES"
	}
	if c.Stream.DurableName == "" {
		c.Stream.DurableName = "chat-relay"
	}
	return c
}
