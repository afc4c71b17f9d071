package api

import (
	"context"
	"net/http"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/logger"
	"github.com/ad/go-telegram-quiz/internal/monitoring"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports store availability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	MaxUploadBytes int64
	// MediaRoot is served at MediaURLPrefix when images are stored on disk.
	MediaRoot      string
	MediaURLPrefix string
}

type Deps struct {
	Users       *services.UserManager
	Events      *services.EventManager
	Quizzes     *services.QuizService
	Importer    *services.QuestionImporter
	Submissions *services.SubmissionService
	Leaderboard *services.LeaderboardService
	AdminChats  *db.AdminChatRepository
	Store       Pinger
	Log         *zap.Logger
}

type Server struct {
	users       *services.UserManager
	events      *services.EventManager
	quizzes     *services.QuizService
	importer    *services.QuestionImporter
	submissions *services.SubmissionService
	leaderboard *services.LeaderboardService
	adminChats  *db.AdminChatRepository
	store       Pinger
	opts        Options
	log         *zap.Logger
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	return &Server{
		users:       deps.Users,
		events:      deps.Events,
		quizzes:     deps.Quizzes,
		importer:    deps.Importer,
		submissions: deps.Submissions,
		leaderboard: deps.Leaderboard,
		adminChats:  deps.AdminChats,
		store:       deps.Store,
		opts:        opts,
		log:         deps.Log.Named("api"),
	}
}

func (s *Server) Router() *gin.Engine {
	monitoring.Init()

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(
		gin.Recovery(),
		logger.GinMiddleware(s.log),
		monitoring.MetricsMiddleware(),
		CORS(s.opts.AllowedOrigins),
		Secure(),
		RateLimiter(s.opts.RateLimit, s.opts.RateBurst),
	)

	r.GET("/", s.welcome)
	r.GET("/healthz", s.health)
	r.GET("/metrics", monitoring.PrometheusHandler())
	if s.opts.MediaRoot != "" && s.opts.MediaURLPrefix != "" {
		r.Static(s.opts.MediaURLPrefix, s.opts.MediaRoot)
	}

	auth := s.CurrentUser()
	requireAdmin := s.RequireAdmin()
	adminOnly := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{auth, requireAdmin, h}
	}

	users := r.Group("/users")
	{
		users.POST("/register", s.register)
		users.POST("/check_admin", s.checkAdmin)
		users.GET("", s.listUsers)
		users.GET("/:telegram_id", s.getUser)
		users.DELETE("/:telegram_id", adminOnly(s.deleteUser)...)
		users.POST("/:telegram_id/promote", adminOnly(s.promoteUser)...)
		users.POST("/:telegram_id/activate", adminOnly(s.activateUser)...)
	}

	r.GET("/leaderboard", s.getLeaderboard)

	chats := r.Group("/admin-chats", auth, requireAdmin)
	{
		chats.GET("", s.listAdminChats)
		chats.POST("", s.addAdminChat)
		chats.POST("/bulk", s.bulkAddAdminChats)
		chats.DELETE("/:chat_id", s.removeAdminChat)
	}

	events := r.Group("/events")
	{
		events.POST("/create", auth, s.createEvent)
		events.GET("/", s.listEvents)
		events.GET("/:id", s.eventStatus)
		events.GET("/:id/next_phase", adminOnly(s.nextPhase)...)
	}

	quizzes := r.Group("/quizes")
	{
		quizzes.GET("/list", s.listQuizzes)
		quizzes.POST("/create", adminOnly(s.createQuiz)...)
		quizzes.POST("/add", adminOnly(s.createQuestion)...)
		quizzes.POST("/answer", auth, s.RequireActive(), s.submitAnswer)
		quizzes.GET("/questions/:question_id", s.getQuestion)
		quizzes.DELETE("/questions/:question_id", adminOnly(s.deleteQuestion)...)
		quizzes.GET("/:quiz_id", s.getQuizQuestions)
		quizzes.DELETE("/:quiz_id", adminOnly(s.deleteQuiz)...)
		quizzes.POST("/:quiz_id/toggle", adminOnly(s.toggleQuiz)...)
		quizzes.PUT("/:quiz_id/answer_limit", adminOnly(s.setAnswerLimit)...)
		quizzes.GET("/:quiz_id/limits", auth, s.getQuizLimits)
		quizzes.POST("/:quiz_id/import", adminOnly(s.importQuestions)...)
		quizzes.POST("/:quiz_id/images", adminOnly(s.uploadImages)...)
	}

	return r
}

func (s *Server) welcome(c *gin.Context) {
	Success(c, gin.H{"service": "quiz", "message": "Welcome to the quiz API"})
}

func (s *Server) health(c *gin.Context) {
	if s.store != nil {
		if err := s.store.PingContext(c.Request.Context()); err != nil {
			s.log.Error("health check failed", zap.Error(err))
			Error(c, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	Success(c, gin.H{"status": "ok"})
}
