package config

const (
	defaultServiceTarget  = "http://localhost:8000"
	defaultServiceTimeout = "30s"

	defaultDashboardListen   = ":8090"
	defaultRefreshInterval   = "30s"
	defaultDashboardSort     = "created_at"
	defaultDashboardOrder    = "desc"
	defaultDashboardUser     = "user_default"
	defaultEventProvider     = "nop"
	defaultEventTopic        = "memdeck.memories"
	defaultInspectHost       = "localhost"
	defaultInspectPort       = 6334
	defaultInspectCollection = "mem0"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Service: ServiceConfig{
			Target:  defaultServiceTarget,
			Timeout: defaultServiceTimeout,
		},
		Dashboard: DashboardConfig{
			Listen:          defaultDashboardListen,
			RefreshInterval: defaultRefreshInterval,
			DefaultSort:     defaultDashboardSort,
			DefaultOrder:    defaultDashboardOrder,
			DefaultUser:     defaultDashboardUser,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventProvider,
			Topic:    defaultEventTopic,
		},
		Inspect: InspectConfig{
			Host:       defaultInspectHost,
			Port:       defaultInspectPort,
			Collection: defaultInspectCollection,
		},
	}
}
