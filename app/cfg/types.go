package cfg

type Cfg struct {
	// Storage configuration
	DBPath  string
	DataDir string

	// Application configuration
	SourcesDir      string
	Port            string
	WorkerCount     int
	QueueSize       int
	MonitorInterval int
	APIAccessKey    string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
