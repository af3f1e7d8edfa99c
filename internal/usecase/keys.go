package usecase

import (
	"fmt"
	"time"
)

// Cache keys and lifetimes shared by the use cases.
const (
	banStatusTTL   = 5 * time.Minute
	userTokenTTL   = 5 * time.Minute
	verifyTokenTTL = time.Minute
	tokenGenTTL    = 30 * time.Minute
	searchTTL      = 5 * time.Minute
	groupStatsTTL  = 2 * time.Minute
	settingsTTL    = time.Hour

	keySystemSettings = "system_settings"
	keyValidSysToken  = "valid_system_token"
)

func banStatusKey(userID int64) string   { return fmt.Sprintf("ban_status_%d", userID) }
func userTokenKey(userID int64) string   { return fmt.Sprintf("user_token_%d", userID) }
func tokenGenKey(userID int64) string    { return fmt.Sprintf("token_gen_%d", userID) }
func verifyTokenKey(token string) string { return "verify_token_" + token }
func groupStatsKey(chatID int64) string  { return fmt.Sprintf("group_stats_%d", chatID) }
