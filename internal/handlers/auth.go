package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"ecocollect-backend/internal/middleware"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginData struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

type RegisterFCMTokenRequest struct {
	Token string `json:"token"`
}

func Login(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		jwtSecret := os.Getenv("APP_JWT_SECRET")
		if jwtSecret == "" {
			log.Println("❌ JWT secret not configured")
			utils.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		// Find user by email
		var user models.User
		query := "SELECT * FROM users WHERE email = $1"
		if err := db.Get(&user, query, req.Email); err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		// Verify password
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		// Create JWT token with user info
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    user.Role,
			"iat":     time.Now().Unix(),
			"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
		})

		tokenString, err := token.SignedString([]byte(jwtSecret))
		if err != nil {
			log.Println("❌ Failed to create token")
			utils.Error(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)
		utils.Success(w, http.StatusOK, "Login successful", LoginData{
			Token: tokenString,
			User:  user.ToUserResponse(),
		})
	}
}

// GetAuthStatus returns the authenticated user's profile
func GetAuthStatus(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", claims.UserID); err != nil {
			utils.Error(w, http.StatusNotFound, "User not found")
			return
		}

		utils.Success(w, http.StatusOK, "Authenticated", user.ToUserResponse())
	}
}

// RegisterFCMToken stores the caller's device token for push notifications
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RegisterFCMTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			utils.Error(w, http.StatusBadRequest, "token is required")
			return
		}

		query := `
			UPDATE users
			SET fcm_token = $1, updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $2
		`
		if _, err := db.Exec(query, req.Token, claims.UserID); err != nil {
			log.Printf("❌ Failed to save FCM token for %s: %v", claims.UserID, err)
			utils.Error(w, http.StatusInternalServerError, "Failed to save token")
			return
		}

		log.Printf("📱 FCM token registered for user %s", claims.UserID)
		utils.Success(w, http.StatusOK, "Token registered", nil)
	}
}

// fcmTokenForUser looks up a user's device token; empty when none registered
func fcmTokenForUser(db *sqlx.DB, userID string) string {
	var token *string
	if err := db.Get(&token, "SELECT fcm_token FROM users WHERE id = $1", userID); err != nil || token == nil {
		return ""
	}
	return *token
}
