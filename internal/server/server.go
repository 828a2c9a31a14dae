package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/jobs"
	"github.com/emrgen/coa/internal/service"
	"github.com/emrgen/coa/internal/site"
	"github.com/emrgen/coa/internal/viewer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	COAs        service.COABackend
	Loader      *service.ContentLoader
	Content     *service.ContentService
	Media       *service.MediaService
	Submissions *service.SubmissionService
	Email       jobs.Dispatcher
	Viewer      *viewer.Viewer
	Site        *site.Config
	// Blobs backs the public object route; nil disables it.
	Blobs      blob.Store
	Bucket     string
	AdminToken string
}

type handlers struct {
	coas        service.COABackend
	loader      *service.ContentLoader
	content     *service.ContentService
	media       *service.MediaService
	submissions *service.SubmissionService
	email       jobs.Dispatcher
	viewer      *viewer.Viewer
	site        *site.Config
	blobs       blob.Store
	bucket      string
}

// NewHandler builds the router wrapped in the CORS handler.
func NewHandler(d Deps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(), RequestTimeMiddleware())

	h := &handlers{
		coas:        d.COAs,
		loader:      d.Loader,
		content:     d.Content,
		media:       d.Media,
		submissions: d.Submissions,
		email:       d.Email,
		viewer:      d.Viewer,
		site:        d.Site,
		blobs:       d.Blobs,
		bucket:      d.Bucket,
	}
	admin := AdminAuth(d.AdminToken)

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/coas/:code/view", h.viewCOA)

	api := router.Group("/api")
	{
		api.GET("/coas", h.listCOAs)
		api.GET("/coas/next-id", admin, h.nextCOAID)
		api.GET("/coas/:code", h.getCOA)
		api.POST("/coas", admin, h.createCOA)
		api.PUT("/coas/:code", admin, h.updateCOA)
		api.DELETE("/coas/:code", admin, h.deleteCOA)
		api.POST("/coas/:code/file", admin, h.uploadCOAFile)
		api.DELETE("/coas/:code/file", admin, h.deleteCOAFile)

		api.GET("/content/:page", h.loadPage)
		api.PUT("/content/:page", admin, h.setPageContent)
		api.GET("/services", h.loadServices)
		api.GET("/testimonials", h.loadTestimonials)
		api.GET("/blog", h.loadBlog)
		api.GET("/settings", h.loadSettings)
		api.PUT("/settings/:key", admin, h.setSetting)

		api.GET("/media", admin, h.listMedia)
		api.POST("/media", admin, h.uploadMedia)
		api.DELETE("/media/:id", admin, h.deleteMedia)

		api.POST("/submissions/contact", h.submitContact)
		api.POST("/submissions/sample", h.submitSample)
		api.POST("/submissions/newsletter", h.subscribe)

		api.POST("/email", admin, h.sendEmail)
		api.GET("/site", h.siteConfig)
	}

	adminAPI := router.Group("/api/admin", admin)
	{
		adminAPI.GET("/content/:page", h.listPageContent)
		adminAPI.GET("/submissions/:kind", h.listSubmissions)
		h.registerCMS(adminAPI)
	}

	if d.Blobs != nil {
		router.GET("/storage/v1/object/public/:bucket/*key", h.readObject)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(router)
}

// Server runs the HTTP API and the background jobs.
type Server struct {
	cfg *config.Config
}

func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start starts the server and blocks until it is stopped.
func (s *Server) Start() {
	if err := Start(s.cfg); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start wires every component from cfg, serves until SIGINT or SIGTERM,
// then stops the jobs and the HTTP server.
func Start(cfg *config.Config) error {
	ctx := context.Background()

	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	l, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return err
	}

	if err := app.Jobs.Start(); err != nil {
		return err
	}

	restServer := &http.Server{
		Handler:           NewHandler(app.Deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Infof("starting http server on :%s", cfg.Port)
		if err := restServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("error serving http: %v", err)
		}
		logrus.Infof("http server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	app.Jobs.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}

	wg.Wait()
	return nil
}
