package constants

import "time"

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
)

const (
	RouteSessionToken      = "/api/get-session-token"
	RouteUpdatePlayerData  = "/api/update-player-data"
	RoutePlayerData        = "/api/get-player-data"
	RoutePlayerDataPerGame = "/api/get-player-data-per-game"
	RouteHealthz           = "/healthz"
)

// Per-request submission limits enforced by the write endpoint.
const (
	MaxScorePerRequest        = 1000
	MaxTransactionsPerRequest = 10
	MinScorePerRequest        = 1
	MaxScorePerTransaction    = 100000
)

// TokenBucket quantizes time for both session tokens and dedup ids.
// TokenWindow is how far back validation walks, so a token stays
// usable for up to five minutes after issuance.
const (
	TokenBucket = 30 * time.Second
	TokenWindow = 5 * time.Minute
)

const (
	DedupWindow       = 30 * time.Second
	MaxProcessingTime = 60 * time.Second
	DedupSweepEvery   = 30 * time.Second
)

const (
	RateLimitMaxRequests = 10
	RateLimitWindow      = 60 * time.Second
)

const (
	AuthMessagePrefix = "Authenticate for score submission: "
)
