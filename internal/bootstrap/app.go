package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
	"github.com/Kayler1303/ACS-sub001/internal/analyzer/azure"
	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/leases"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
	"github.com/Kayler1303/ACS-sub001/internal/queue"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
	"github.com/Kayler1303/ACS-sub001/internal/server"
	"github.com/Kayler1303/ACS-sub001/internal/shared/config"
	"github.com/Kayler1303/ACS-sub001/internal/shared/locks"
	"github.com/Kayler1303/ACS-sub001/internal/shared/storage/db"
	"github.com/Kayler1303/ACS-sub001/internal/shared/storage/object"
	localstore "github.com/Kayler1303/ACS-sub001/internal/shared/storage/object/local"
	s3store "github.com/Kayler1303/ACS-sub001/internal/shared/storage/object/s3"
	"github.com/Kayler1303/ACS-sub001/internal/verifications"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Jobs     queue.Client
	Locks    locks.Locker
	Analyzer analyzer.Client

	LeasesRepo        leases.Repo
	ResidentsRepo     residents.Repo
	DocumentsRepo     documents.Repo
	VerificationsRepo verifications.Repo
	OverridesRepo     overrides.Repo

	LeasesService        *leases.Service
	DocumentsService     *documents.Service
	VerificationsService *verifications.Service
	OverridesService     *overrides.Service
	DocumentProcessor    DocumentProcessor

	LeasesHandler        *leases.Handler
	VerificationsHandler *verifications.Handler
	DocumentsHandler     *documents.Handler
	OverridesHandler     *overrides.Handler
}

// DocumentProcessor allows callers to override pipeline processing for tests.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) error
}

// Build prepares shared dependencies and the router. Outside production,
// missing backing services degrade to in-process substitutes (memory
// repositories, local object store, in-memory locks, placeholder analyzer)
// so the API runs with no external setup.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jobs, err := buildJobs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	locker, err := buildLocks(cfg)
	if err != nil {
		return nil, err
	}

	analyzerClient, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Jobs:     jobs,
		Locks:    locker,
		Analyzer: analyzerClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		LeaseHandler:        app.LeasesHandler,
		VerificationHandler: app.VerificationsHandler,
		DocumentHandler:     app.DocumentsHandler,
		OverrideHandler:     app.OverridesHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildJobs(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildLocks(cfg config.Config) (locks.Locker, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return locks.NewMemory(), nil
	}
	locker, err := locks.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis connect failed; using in-memory locks: %v", err)
			return locks.NewMemory(), nil
		}
		return nil, err
	}
	return locker, nil
}

func buildAnalyzer(cfg config.Config) (analyzer.Client, error) {
	if strings.TrimSpace(cfg.AnalyzerEndpoint) == "" || strings.TrimSpace(cfg.AnalyzerKey) == "" {
		log.Printf("bootstrap: analyzer credentials missing; uploads will park in review")
		return analyzer.PlaceholderClient{}, nil
	}
	client, err := azure.NewClient(cfg.AnalyzerEndpoint, cfg.AnalyzerKey, cfg.AnalyzerAPIVersion, cfg.AnalyzerTimeout, cfg.AnalyzerPollInterval)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var (
		leaseRepo    leases.Repo
		residentRepo residents.Repo
		docRepo      documents.Repo
		verifRepo    verifications.Repo
		overrideRepo overrides.Repo
		committer    documents.OutcomeCommitter
	)

	if app.DB != nil {
		leaseRepo = &leases.PGRepo{DB: app.DB}
		residentRepo = &residents.PGRepo{DB: app.DB}
		docRepo = documents.NewPGRepo(app.DB)
		verifRepo = verifications.NewPGRepo(app.DB)
		overrideRepo = &overrides.PGRepo{DB: app.DB}
		committer = verifications.NewPGCommitter(app.DB)
	} else {
		memDocs := documents.NewMemoryRepo()
		leaseRepo = leases.NewMemoryRepo()
		residentRepo = residents.NewMemoryRepo()
		docRepo = memDocs
		verifRepo = verifications.NewMemoryRepo()
		overrideRepo = overrides.NewMemoryRepo()
		committer = &verifications.MemoryCommitter{
			Docs:      memDocs,
			Residents: residentRepo,
			Repo:      verifRepo,
		}
	}

	overrideSvc := &overrides.Service{Repo: overrideRepo}

	leaseSvc := &leases.Service{Repo: leaseRepo, Residents: residentRepo}

	verifSvc := &verifications.Service{
		Repo:      verifRepo,
		Leases:    leaseRepo,
		Residents: residentRepo,
		Docs:      docRepo,
		Overrides: overrideSvc,
	}

	docSvc := &documents.Service{
		Repo:           docRepo,
		Store:          app.Store,
		Analyzer:       app.Analyzer,
		Jobs:           app.Jobs,
		Locks:          app.Locks,
		Overrides:      overrideSvc,
		Verifications:  verifSvc,
		Committer:      committer,
		MaxUploadBytes: app.Config.MaxUploadBytes,
	}

	// An approved document-scoped override promotes through the document
	// service, which in turn raises overrides; the cycle closes here.
	overrideSvc.Docs = docSvc

	app.LeasesRepo = leaseRepo
	app.ResidentsRepo = residentRepo
	app.DocumentsRepo = docRepo
	app.VerificationsRepo = verifRepo
	app.OverridesRepo = overrideRepo
	app.LeasesService = leaseSvc
	app.DocumentsService = docSvc
	app.VerificationsService = verifSvc
	app.OverridesService = overrideSvc
	app.DocumentProcessor = docSvc
	app.LeasesHandler = leases.NewHandler(leaseSvc)
	app.VerificationsHandler = verifications.NewHandler(verifSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.OverridesHandler = overrides.NewHandler(overrideSvc)
}
