package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/config"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/docgate/docgate/internal/server/services"
	"github.com/gin-gonic/gin"
)

type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

type AccountService interface {
	Register(ctx context.Context, email, password, details string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	Approve(ctx context.Context, id string) (*models.Account, error)
	Reject(ctx context.Context, id, reason string) (*models.Account, error)
	DeleteAccount(ctx context.Context, actor models.Identity, id string) error
}

type DocumentService interface {
	List(ctx context.Context) ([]models.BlobReference, error)
	IssueSignedURL(ctx context.Context, name string) (*models.SignedURL, error)
	StreamTo(ctx context.Context, name, rangeHeader string, w http.ResponseWriter) error
	Upload(ctx context.Context, name string, r io.Reader, size int64, declaredType string) (*models.BlobReference, error)
	Delete(ctx context.Context, name string) error
	DeleteMany(ctx context.Context, names []string) (*models.BulkDeleteResult, error)
}

// Deps are the collaborators of the router. Health and Metrics are
// optional; a fresh Metrics is created when none is given.
type Deps struct {
	Config    *config.Config
	Verifier  TokenVerifier
	Accounts  AccountService
	Documents DocumentService
	Logger    logging.Logger
	Health    func(context.Context) error
	Metrics   *Metrics
}

// API holds the handlers and gates.
type API struct {
	verifier  TokenVerifier
	accounts  AccountService
	documents DocumentService
	logger    logging.Logger
	health    func(context.Context) error
	metrics   *Metrics
	debug     bool
}

func NewAPI(d Deps) *API {
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	return &API{
		verifier:  d.Verifier,
		accounts:  d.Accounts,
		documents: d.Documents,
		logger:    d.Logger.With("module", "http"),
		health:    d.Health,
		metrics:   d.Metrics,
		debug:     d.Config.Debug,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	a := NewAPI(d)

	r := gin.New()
	// Document names may carry an escaped slash.
	r.UseRawPath = true
	r.MaxMultipartMemory = 8 << 20
	r.Use(a.requestLogger(), a.recovery())
	r.NoRoute(noRoute(a))

	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", a.Register)
	authGroup.POST("/login", a.Login)
	authGroup.GET("/me", a.RequireAuth(), a.Me)

	admin := api.Group("/admin", a.RequireAuth(), a.RequireRole(models.RoleAdmin))
	admin.GET("/accounts", a.ListAccounts)
	admin.POST("/accounts/:id/approve", a.ApproveAccount)
	admin.POST("/accounts/:id/reject", a.RejectAccount)
	admin.DELETE("/accounts/:id", a.DeleteAccount)

	docs := api.Group("/documents")
	docs.GET("", a.RequireAuth(), a.ListDocuments)
	docs.GET("/:name/url", a.RequireAuth(), a.DocumentURL)
	docs.GET("/:name/stream", a.OptionalAuth(), a.StreamDocument)
	docs.POST("", a.RequireAuth(), a.RequireRole(models.RoleAdmin), a.UploadDocument)
	docs.POST("/delete", a.RequireAuth(), a.RequireRole(models.RoleAdmin), a.DeleteDocuments)
	docs.DELETE("/:name", a.RequireAuth(), a.RequireRole(models.RoleAdmin), a.DeleteDocument)

	return r
}

func (a *API) Healthz(c *gin.Context) {
	if a.health != nil {
		if err := a.health(c.Request.Context()); err != nil {
			a.logger.Warn(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Error: &errorBody{Message: "unavailable"}})
			return
		}
	}
	ok(c, http.StatusOK, gin.H{"status": "ok"}, "")
}
