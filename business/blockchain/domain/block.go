// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// Block is the chain position observed by a block source.
type Block struct {
	Nonce     uint64
	Round     uint64
	Epoch     uint32
	Shard     uint32
	Timestamp time.Time
	Source    string
}

// ConnectionState represents the state of a block source.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus contains detailed source information.
type ConnectionStatus struct {
	State      ConnectionState
	Source     string
	LastRound  uint64
	LastUpdate time.Time
	Reconnects int
}
