package models

import (
	"time"

	auth "github.com/nadmetry/scorerelay/internal/auth"
	chain "github.com/nadmetry/scorerelay/internal/chain"
	dedup "github.com/nadmetry/scorerelay/internal/dedup"
	origin "github.com/nadmetry/scorerelay/internal/origin"
	ratelimit "github.com/nadmetry/scorerelay/internal/ratelimit"
)

// App carries the wired components and config shared by every handler.
type App struct {
	Tokens     *auth.SessionTokenAuthority
	Origins    *origin.Guard
	Limiter    *ratelimit.Limiter
	RateStore  *ratelimit.MemoryStore
	RatePolicy ratelimit.Policy
	Dedup      *dedup.Deduplicator
	DedupStore *dedup.MemoryStore
	Writer     chain.Writer

	IsProduction bool
	StartTime    time.Time
}

type SessionTokenRequest struct {
	PlayerAddress string `json:"playerAddress"`
	SignedMessage string `json:"signedMessage"`
	Message       string `json:"message"`
}

// UpdatePlayerDataRequest uses pointer amounts so a zero value and an
// absent field stay distinguishable.
type UpdatePlayerDataRequest struct {
	PlayerAddress     string `json:"playerAddress"`
	ScoreAmount       *int64 `json:"scoreAmount"`
	TransactionAmount *int64 `json:"transactionAmount"`
	SessionToken      string `json:"sessionToken"`
}

type PlayerDataRequest struct {
	PlayerAddress string `json:"playerAddress"`
}

type PlayerDataPerGameRequest struct {
	PlayerAddress string `json:"playerAddress"`
	GameAddress   string `json:"gameAddress"`
}
