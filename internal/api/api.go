package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/identity"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/session"
)

const userIDKey = "livequiz.userID"

type Config struct {
	Router       *gin.Engine
	EventBus     *event.Bus
	Engine       *session.Service
	Leaderboard  *leaderboard.Service
	Identity     identity.Resolver
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	engine   *session.Service
	ls       *leaderboard.Service
	identity identity.Resolver

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		engine:   c.Engine,
		ls:       c.Leaderboard,
		identity: c.Identity,
		redis:    c.Redis,
		prefix:   c.PubsubPrefix,
	}

	// Admin routes act on behalf of the quiz owner.
	admin := c.Router.Group("/v1/admin", a.authenticate)
	admin.POST("/quiz/:quizid/session/start", a.createSession)
	admin.PUT("/quiz/:quizid/session/:sessionid", a.applyTrigger)
	admin.GET("/quiz/:quizid/session/:sessionid", a.getSessionStatus)
	admin.GET("/quiz/:quizid/sessions", a.listSessions)

	// Player routes are unauthenticated; a player id is its own proof
	// of admission.
	c.Router.POST("/v1/player/join", a.joinSession)
	c.Router.PUT("/v1/player/:playerid/answer", a.submitAnswer)
	c.Router.GET("/v1/player/:playerid", a.getPlayerStatus)
	c.Router.POST("/v1/player/:playerid/chat", a.sendChatMessage)
	c.Router.GET("/v1/player/:playerid/chat", a.listChatMessages)

	c.Router.GET("/v1/leaderboard/:sessionid", a.getLeaderboard)

	// Hand state changes and leaderboard updates off to redis pub/sub
	// for external delivery.
	c.EventBus.Subscribe(domain.EventNameSessionStateChanged, func(ctx context.Context, e event.Event) error {
		return a.PublishSessionStateChanged(ctx, e.(domain.EventSessionStateChanged))
	})
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})

	return a
}

// authenticate resolves the session token header into a user id.
func (a *API) authenticate(c *gin.Context) {
	userID, err := a.identity.ResolveToken(c.Request.Context(), c.GetHeader("Token"))
	if err != nil {
		renderError(c, err)
		c.Abort()
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: internal error",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
