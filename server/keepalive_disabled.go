//go:build nokeepalive

package server

const KeepAliveEnabled = false
