package optname

const (
	ChunkRetries      = "chunk-retries"
	ChunkSize         = "chunk-size"
	Connections       = "connections"
	ConnTimeout       = "connect-timeout"
	FallbackDir       = "fallback-dir"
	Force             = "force"
	ForceSplit        = "force-split"
	Insecure          = "insecure"
	LimitRate         = "limit-rate"
	LoggingLevel      = "log-level"
	Password          = "password"
	Retries           = "retries"
	Server            = "server"
	SplitChunkRetries = "split-chunk-retries"
	SplitPartSize     = "split-part-size"
	Username          = "username"
	Verbose           = "verbose"
)
