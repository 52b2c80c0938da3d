package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PublicRoutes are reachable without a bearer token.
var PublicRoutes = []Route{
	{Method: http.MethodPost, Path: "/auth/signIn"},
	{Method: http.MethodPost, Path: "/auth/signUp"},
	{Method: http.MethodGet, Path: "/healthz"},
}

// NewRouter wires middleware and routes. The gate runs for every route,
// including unmatched ones. Recover sits inside RequestLogger so recovered
// panics still get a request line.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestLogger(log))
	r.Use(Recover(log))
	r.Use(NewGate(h.auth, log, PublicRoutes...).Handler())

	r.GET("/healthz", h.Healthz)

	auth := r.Group("/auth")
	{
		auth.POST("/signIn", h.SignIn)
		auth.POST("/signUp", h.SignUp)
	}

	user := r.Group("/user")
	{
		user.POST("", h.CreateUser)
		user.GET("", h.ListUsers)
		user.GET("/:id", h.GetUser)
		user.PATCH("/:id", h.UpdateUser)
		user.DELETE("/:id", h.DeleteUser)
		user.POST("/avatar/:id", h.UploadUserAvatar)
		user.DELETE("/avatar/:id", h.DeleteUserAvatar)
	}

	org := r.Group("/organization")
	{
		org.POST("", h.CreateOrganization)
		org.GET("", h.ListOrganizations)
		org.GET("/:id", h.GetOrganization)
		org.PATCH("/:id", h.UpdateOrganization)
		org.DELETE("/:id", h.DeleteOrganization)
		org.POST("/avatar/:id", h.UploadOrganizationAvatar)
		org.DELETE("/avatar/:id", h.DeleteOrganizationAvatar)
		org.POST("/add-users/:id", h.AddOrganizationUsers)
		org.DELETE("/remove-users/:id", h.RemoveOrganizationUsers)
	}

	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
