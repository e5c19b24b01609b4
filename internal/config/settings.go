package config

import "time"

// Settings is the fully resolved configuration for one crawler process.
// CLI flags (see cmd/zcrawl) override the values NewSettings reads from
// gocore's config; NewSettings alone is what a library caller gets.
type Settings struct {
	Network   NetworkSettings
	Codec     CodecSettings
	Handshake HandshakeSettings
	Crawler   CrawlerSettings
	RPC       RPCSettings
}

// NetworkSettings names the Zcash network the crawler targets. Magic and
// port are runtime configuration so one binary can run against any of the
// three networks.
type NetworkSettings struct {
	Magic uint32
	Port  int
}

// CodecSettings bounds what the codec will accept off the wire.
type CodecSettings struct {
	MaxMessageLen int
}

// HandshakeSettings configures the version/verack exchange.
type HandshakeSettings struct {
	MinVersion        int32
	TransitionTimeout time.Duration
}

// CrawlerSettings configures the crawl loop.
type CrawlerSettings struct {
	SeedAddrs           []string
	CrawlInterval       time.Duration
	MaxConcurrentProbes int
	ProbeCooldown       time.Duration
	AddrTimeout         time.Duration
	MaxKnownNodes       int
}

// RPCSettings configures the JSON-RPC surface. Address empty means the
// server is not started, matching the -r flag's off-by-default behaviour.
type RPCSettings struct {
	Address              string
	MaxResponseBodyBytes int64
}

// Network magic constants. Regtest and testnet magics follow zcashd's
// published constants; mainnet matches the value zcashd ships.
const (
	MagicMainnet uint32 = 0x6427E924
	MagicTestnet uint32 = 0xBFF91AFA
	MagicRegtest uint32 = 0x5F3FE8AA
)

const (
	// DefaultPort is the mainnet Zcash P2P port.
	DefaultPort = 8233
	// MinProtocolVersion is the lowest protocol version accepted before a
	// peer is treated as obsolete.
	MinProtocolVersion int32 = 170015
	// DefaultMaxMessageLen bounds a single message body.
	DefaultMaxMessageLen = 2 * 1024 * 1024
)

// NewSettings resolves Settings from gocore's global config, the way
// teranode's settings package resolves its own Settings struct: every
// field has an inline default so the process runs sensibly unconfigured.
func NewSettings() *Settings {
	return &Settings{
		Network: NetworkSettings{
			Magic: MagicMainnet,
			Port:  getInt("network_port", DefaultPort),
		},
		Codec: CodecSettings{
			MaxMessageLen: getInt("codec_maxMessageLen", DefaultMaxMessageLen),
		},
		Handshake: HandshakeSettings{
			MinVersion:        int32(getInt("handshake_minVersion", int(MinProtocolVersion))),
			TransitionTimeout: getDuration("handshake_transitionTimeout", 10*time.Second),
		},
		Crawler: CrawlerSettings{
			SeedAddrs:           getMultiString("crawler_seedAddrs", ""),
			CrawlInterval:       getDuration("crawler_interval", 5*time.Second),
			MaxConcurrentProbes: getInt("crawler_maxConcurrentProbes", 50),
			ProbeCooldown:       getDuration("crawler_probeCooldown", 60*time.Second),
			AddrTimeout:         getDuration("crawler_addrTimeout", 5*time.Second),
			MaxKnownNodes:       getInt("crawler_maxKnownNodes", 100_000),
		},
		RPC: RPCSettings{
			Address:              getString("rpc_address", ""),
			MaxResponseBodyBytes: int64(getInt("rpc_maxResponseBodyBytes", 20*1024*1024)),
		},
	}
}

// MagicForNetwork resolves a network name to its magic constant.
func MagicForNetwork(name string) uint32 {
	switch name {
	case "testnet":
		return MagicTestnet
	case "regtest":
		return MagicRegtest
	default:
		return MagicMainnet
	}
}
