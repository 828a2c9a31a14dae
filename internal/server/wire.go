package server

import (
	"context"
	"fmt"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/cache"
	"github.com/emrgen/coa/internal/compress"
	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/jobs"
	"github.com/emrgen/coa/internal/notify"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/queue"
	"github.com/emrgen/coa/internal/repair"
	"github.com/emrgen/coa/internal/service"
	"github.com/emrgen/coa/internal/site"
	"github.com/emrgen/coa/internal/store"
	"github.com/emrgen/coa/internal/viewer"
	"github.com/sirupsen/logrus"
)

// App is a fully wired service.
type App struct {
	Deps  Deps
	Store *store.GormStore
	Jobs  *jobs.TaskExecutor

	closers []func() error
}

// Close releases the connections opened by Build.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logrus.Warnf("error closing: %v", err)
		}
	}
}

// Build opens every backend named by cfg and wires the services on top.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	db := config.GetDb(cfg)
	app.Store = store.NewGormStore(db)
	if err := app.Store.Migrate(); err != nil {
		return fail(fmt.Errorf("migrate: %w", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	resolver := objref.NewResolver(cfg.PublicBaseURL, cfg.Bucket)

	codec, err := compress.New(cfg.Compression)
	if err != nil {
		return fail(err)
	}

	var rdb *cache.Redis
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, codec)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		app.closers = append(app.closers, rdb.Close)
	}

	var contentCache cache.Cache = cache.NewMemory(cfg.CMSCacheTTL)
	if rdb != nil {
		contentCache = cache.NewTiered(contentCache, rdb.Namespace("cms:"), cfg.CMSCacheTTL)
	}

	managerOpts := service.ManagerOptions{
		Backend:  cfg.COABackend,
		Store:    app.Store,
		Blobs:    blobs,
		Resolver: resolver,
		Prefix:   cfg.COAPrefix,
	}
	if rdb != nil {
		managerOpts.KV = rdb.Namespace("kv:")
	}
	coas, err := service.NewCOAManager(managerOpts)
	if err != nil {
		return fail(err)
	}

	events, err := openQueue(cfg)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, events.Close)

	siteCfg, err := site.Load(cfg.SiteConfig)
	if err != nil {
		return fail(err)
	}

	company := cfg.CompanyName
	if siteCfg.Company.Name != "" {
		company = siteCfg.Company.Name
	}
	dispatcher, err := notify.NewDispatcher(openMailer(cfg), notify.Options{
		From:    cfg.EmailFrom,
		AdminTo: cfg.AdminEmail,
		Company: company,
	})
	if err != nil {
		return fail(err)
	}

	pdfViewer, err := viewer.New(cfg.ViewerURL)
	if err != nil {
		return fail(err)
	}

	loader := service.NewContentLoader(app.Store, contentCache, cfg.CMSCacheTTL)
	app.Deps = Deps{
		COAs:        coas,
		Loader:      loader,
		Content:     service.NewContentService(app.Store, loader),
		Media:       service.NewMediaService(app.Store, blobs, resolver),
		Submissions: service.NewSubmissionService(app.Store, events),
		Email:       dispatcher,
		Viewer:      pdfViewer,
		Site:        siteCfg,
		Bucket:      resolver.Bucket,
		AdminToken:  cfg.AdminToken,
	}
	if blobs.Driver() != blob.DriverS3 {
		app.Deps.Blobs = blobs
	}

	auditor := repair.New(app.Store, blobs, resolver, repair.Options{DryRun: true})
	app.Jobs = jobs.NewTaskExecutor(
		[]jobs.Job{jobs.NewNotificationJob(events, dispatcher)},
		[]jobs.CronJob{jobs.NewIntegrityAuditJob(auditor, cfg.AuditSchedule)},
	).WithInterval("@every 1s")

	if cfg.AdminToken == "" {
		logrus.Warnf("ADMIN_TOKEN is not set, admin routes are disabled")
	}
	return app, nil
}

// OpenBlobs opens the configured blob store, creating the S3 bucket when missing.
func OpenBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	blobs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.BlobDriver),
		FSRoot: cfg.BlobRoot,
		S3: blob.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	if s3, ok := blobs.(*blob.S3); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
		}
	}
	logrus.Infof("blob store: %s", blobs.Driver())
	return blobs, nil
}

func openQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.QueueDriver {
	case "", "memory":
		return queue.NewMemory(1024), nil
	case "kafka":
		return queue.NewKafka(queue.KafkaOptions{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

func openMailer(cfg *config.Config) notify.Mailer {
	if cfg.EmailAPIKey == "" {
		logrus.Warnf("EMAIL_API_KEY is not set, emails are only logged")
		return notify.LogMailer{}
	}
	return notify.NewHTTPMailer(cfg.EmailAPIBase, cfg.EmailAPIKey)
}
