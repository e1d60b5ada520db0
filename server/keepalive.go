//go:build !nokeepalive

package server

// KeepAliveEnabled is the default for ServerConfig.KeepAlive. Build with
// -tags nokeepalive to hold responses until the feed is ready instead.
const KeepAliveEnabled = true
