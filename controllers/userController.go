package controllers

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"
	"golang.org/x/crypto/bcrypt"
)

func UserSignup(c *gin.Context) {
	var user models.UserProfileSignup

	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userCount, err := initializers.DB.From("user_profile").Select("username").Where(goqu.C("username").Eq(user.Username)).Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if userCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username already exists."})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newUser := models.UserProfile{
		Username:   user.Username,
		Password:   string(passwordHash),
		Email:      user.Email,
		First_Name: user.First_Name,
		Last_Name:  user.Last_Name,
		Created_By: 1,
		Updated_By: 1,
	}

	insert := initializers.DB.Insert("user_profile").Rows(newUser).Executor()
	if _, err := insert.Exec(); err != nil {
		log.Printf("Failed to create user %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User created successfully.",
	})
}

func UserLogin(c *gin.Context) {
	var user models.Login

	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dbUser models.UserProfile
	found, err := initializers.DB.From("user_profile").Select("*").Where(goqu.C("username").Eq(user.Username)).ScanStruct(&dbUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(dbUser.Password), []byte(user.Password))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	role := "user"
	if dbUser.Admin {
		role = "admin"
	}

	generateToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   dbUser.User_Profile_ID,
		"exp":  time.Now().Add(time.Hour * 24).Unix(),
		"role": role,
	})

	token, err := generateToken.SignedString([]byte(os.Getenv("SECRET")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User logged in successfully.",
		"token":   token,
		"user":    dbUser,
	})
}

func GetUserProfile(c *gin.Context) {
	user, _ := c.Get("currentUser")

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"admin": c.MustGet("admin"),
	})
}

// StorePushToken upserts a device token so lifecycle notifications can reach
// the user's devices.
// POST /users/push-token
func StorePushToken(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	var req models.PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.PushToken) < 10 || len(req.PushToken) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid push token length"})
		return
	}

	upsert := `
		INSERT INTO "user_push_tokens" (user_profile_id, push_token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_profile_id, push_token)
		DO UPDATE SET platform = EXCLUDED.platform, updated_at = NOW()`
	if _, err := initializers.DB.Exec(upsert, user.User_Profile_ID, req.PushToken, req.Platform); err != nil {
		log.Printf("Failed to store push token for user %d: %v", user.User_Profile_ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store push token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push token stored successfully"})
}

// GetNotifications lists the caller's notifications, newest first.
// GET /notifications
func GetNotifications(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	limit, offset := paginationParams(c)

	var notifications []models.Notification
	err := initializers.DB.From("notification").
		Where(goqu.C("user_profile_id").Eq(user.User_Profile_ID)).
		Order(goqu.C("datetime_create").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ScanStructs(&notifications)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": notifications,
		"limit":   limit,
		"offset":  offset,
	})
}
