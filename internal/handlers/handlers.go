package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	auth "github.com/nadmetry/scorerelay/internal/auth"
	chain "github.com/nadmetry/scorerelay/internal/chain"
	constants "github.com/nadmetry/scorerelay/internal/constants"
	models "github.com/nadmetry/scorerelay/internal/models"
	util "github.com/nadmetry/scorerelay/internal/util"
)

// SessionTokenHandler issues a time-bucketed session token after verifying
// that the caller's wallet actually signed the login message.
func SessionTokenHandler(app *models.App, c *gin.Context) {
	var req models.SessionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	if req.PlayerAddress == "" || req.SignedMessage == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: playerAddress, signedMessage, message"})
		return
	}

	if !auth.IsValidAddress(req.PlayerAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player address format"})
		return
	}

	if req.Message != constants.AuthMessagePrefix+req.PlayerAddress {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format"})
		return
	}

	if err := auth.VerifySignature(req.Message, req.SignedMessage, req.PlayerAddress); err != nil {
		if errors.Is(err, auth.ErrSignerMismatch) {
			util.LogWarn("Signature mismatch for %s", req.PlayerAddress)
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: Signature does not match player address"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed signature"})
		return
	}

	bucket := auth.BucketTimestamp(time.Now())
	token := app.Tokens.Issue(req.PlayerAddress, bucket)
	util.LogInfo("Issued session token for %s (bucket %d)", req.PlayerAddress, bucket)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionToken": token,
		"expiresAt":    auth.ExpiresAt(bucket),
	})
}

// UpdatePlayerDataHandler runs the submission pipeline. Origin and rate
// limiting already ran in middleware; everything after that short-circuits
// on the first failing check.
func UpdatePlayerDataHandler(app *models.App, c *gin.Context) {
	var req models.UpdatePlayerDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	if req.SessionToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing session token"})
		return
	}
	if !app.Tokens.Validate(req.SessionToken, req.PlayerAddress) {
		util.LogWarn("Session token validation failed for %s", req.PlayerAddress)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired session token"})
		return
	}

	if req.PlayerAddress == "" || req.ScoreAmount == nil || req.TransactionAmount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: playerAddress, scoreAmount, transactionAmount"})
		return
	}
	score := *req.ScoreAmount
	transactions := *req.TransactionAmount

	if !auth.IsValidAddress(req.PlayerAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player address format"})
		return
	}

	if score < 0 || transactions < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Score and transaction amounts must be non-negative"})
		return
	}

	if score > constants.MaxScorePerRequest || transactions > constants.MaxTransactionsPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"Amounts too large. Max score: %d, Max transactions: %d",
			constants.MaxScorePerRequest, constants.MaxTransactionsPerRequest)})
		return
	}

	// Zero-score heartbeats are allowed; anything else below the floor is
	// near-zero spam.
	if score < constants.MinScorePerRequest && score != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"Score amount too small. Minimum: %d", constants.MinScorePerRequest)})
		return
	}

	if transactions > 0 && score/transactions > constants.MaxScorePerTransaction {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"Score per transaction too high. Maximum: %d points per transaction",
			constants.MaxScorePerTransaction)})
		return
	}

	requestID := app.Dedup.MakeID(req.PlayerAddress, score, transactions)
	if app.Dedup.IsDuplicate(requestID) {
		util.LogWarn("Duplicate submission for %s (request id %.8s)", req.PlayerAddress, requestID)
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate request detected. Please wait before retrying."})
		return
	}
	app.Dedup.MarkProcessing(requestID)

	hash, err := app.Writer.UpdatePlayerData(c.Request.Context(), req.PlayerAddress, score, transactions)
	if err != nil {
		// The entry stays marked processing; the sweeper clears it if it
		// goes stuck, so a crashed write cannot wedge the player forever.
		util.LogWarn("Chain write failed for %s: %v", req.PlayerAddress, err)
		respondChainError(c, err)
		return
	}
	app.Dedup.MarkComplete(requestID)

	util.LogInfo("Updated player data for %s: score +%d, transactions +%d, tx %s",
		req.PlayerAddress, score, transactions, hash)
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"transactionHash": hash,
		"message":         "Player data updated successfully",
	})
}

func respondChainError(c *gin.Context, err error) {
	switch chain.Kind(err) {
	case chain.KindInsufficientFunds:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds to complete transaction"})
	case chain.KindExecutionReverted:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contract execution failed - check if wallet has GAME_ROLE permission"})
	case chain.KindUnauthorizedRole:
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized: Wallet does not have GAME_ROLE permission"})
	case chain.KindNonceConflict:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Another transaction has higher priority. Please retry shortly."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update player data"})
	}
}

// PlayerDataHandler serves the player's global totals. GET takes the
// address as a query parameter, POST as a JSON body.
func PlayerDataHandler(app *models.App, c *gin.Context) {
	playerAddress := c.Query("address")
	if c.Request.Method == http.MethodPost {
		var req models.PlayerDataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
			return
		}
		playerAddress = req.PlayerAddress
	}

	if playerAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Player address is required"})
		return
	}
	if !auth.IsValidAddress(playerAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player address format"})
		return
	}

	ctx := c.Request.Context()
	totalScore, err := app.Writer.TotalScore(ctx, playerAddress)
	if err != nil {
		util.LogWarn("Reading total score for %s failed: %v", playerAddress, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get player data"})
		return
	}
	totalTransactions, err := app.Writer.TotalTransactions(ctx, playerAddress)
	if err != nil {
		util.LogWarn("Reading total transactions for %s failed: %v", playerAddress, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get player data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"playerAddress":     playerAddress,
		"totalScore":        totalScore.String(),
		"totalTransactions": totalTransactions.String(),
	})
}

// PlayerDataPerGameHandler serves one game's slice of a player's record.
func PlayerDataPerGameHandler(app *models.App, c *gin.Context) {
	playerAddress := c.Query("playerAddress")
	gameAddress := c.Query("gameAddress")
	if c.Request.Method == http.MethodPost {
		var req models.PlayerDataPerGameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
			return
		}
		playerAddress = req.PlayerAddress
		gameAddress = req.GameAddress
	}

	if playerAddress == "" || gameAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both playerAddress and gameAddress are required"})
		return
	}
	if !auth.IsValidAddress(playerAddress) || !auth.IsValidAddress(gameAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player or game address format"})
		return
	}

	score, transactions, err := app.Writer.PlayerDataPerGame(c.Request.Context(), gameAddress, playerAddress)
	if err != nil {
		util.LogWarn("Reading per-game data for %s/%s failed: %v", playerAddress, gameAddress, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get player data per game"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"playerAddress": playerAddress,
		"gameAddress":   gameAddress,
		"score":         score.String(),
		"transactions":  transactions.String(),
	})
}

func HealthzHandler(app *models.App, c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(app.StartTime)

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"dedup_entries":   app.DedupStore.Len(),
		"active_limiters": app.RateStore.Len(),
		"memory_alloc_mb": m.Alloc / 1024 / 1024,
		"memory_sys_mb":   m.Sys / 1024 / 1024,
		"memory_gc_count": m.NumGC,
		"uptime":          util.FormatUptime(uptime),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
