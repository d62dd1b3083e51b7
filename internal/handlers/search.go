package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

const searchResultLimit = 20

// SearchHandler powers the combined people/chat search box.
type SearchHandler struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	feed     repositories.FeedRepository
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(messages repositories.MessageRepository, users repositories.UserRepository, feed repositories.FeedRepository) *SearchHandler {
	return &SearchHandler{messages: messages, users: users, feed: feed}
}

// Search handles GET /search. Scope selects people, chats or both; an empty
// chat query falls back to the caller's full feed as the recommendation set.
func (h *SearchHandler) Search(c *gin.Context) {
	userID := c.GetInt64("userID")

	scope, err := models.ParseSearchScope(c.Query("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := strings.TrimSpace(c.Query("query"))
	terms := strings.Fields(query)

	var users []models.User
	if scope == models.SearchScopeAll || scope == models.SearchScopePeople {
		users, err = h.users.Search(c.Request.Context(), terms, []int64{userID}, searchResultLimit, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
			return
		}
		if users == nil {
			users = []models.User{}
		}
	}

	var chats interface{} = []models.FeedRow{}
	if scope == models.SearchScopeAll || scope == models.SearchScopeChats {
		if query == "" {
			feed, err := h.feed.BuildFeed(c.Request.Context(), userID, models.FeedScopeAll)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
				return
			}
			chats = feed
		} else {
			matches, err := h.messages.SearchByContent(c.Request.Context(), userID, query)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search messages"})
				return
			}
			chats = matches
		}
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "chats": chats})
}
