package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/analysis"
	googleauth "compliance-backend/internal/auth"
	"compliance-backend/internal/controls"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/matcher"
	"compliance-backend/internal/matches"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	s3store "compliance-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the scan worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	ControlsRepo  controls.Repo
	DocumentsRepo documents.Repo
	MatchesRepo   matches.Repo

	Views    *matches.ViewCache
	Sessions *analysis.SessionStore

	DocumentsService *documents.Service
	MatchesService   *matches.Service
	AnalysisService  *analysis.Service
	MatcherService   *matcher.Service

	ControlsHandler  *controls.Handler
	DocumentsHandler *documents.Handler
	MatchesHandler   *matches.Handler
	AnalysisHandler  *analysis.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
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

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		ControlsHandler:  app.ControlsHandler,
		DocumentsHandler: app.DocumentsHandler,
		MatchesHandler:   app.MatchesHandler,
		AnalysisHandler:  app.AnalysisHandler,
		GoogleAuth:       app.GoogleAuth,
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
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
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

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("CB_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) error {
	var (
		controlsRepo controls.Repo
		docRepo      documents.Repo
		matchRepo    matches.Repo
	)
	if app.DB != nil {
		controlsRepo = &controls.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		matchRepo = &matches.PGRepo{DB: app.DB}
	} else {
		controlsRepo = controls.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		matchRepo = matches.NewMemoryRepo()
	}

	views := matches.NewViewCache()
	sessions := analysis.NewSessionStore()

	docSvc := &documents.Service{
		Store: app.Store,
		Repo:  docRepo,
		Queue: app.Queue,
	}
	matchSvc := matches.NewService(matchRepo, views, controlsRepo)

	streamClient := analysis.StreamClient(placeholderStreamClient{})
	if strings.TrimSpace(app.Config.AssessmentServiceURL) != "" {
		client, err := analysis.NewClient(app.Config.AssessmentServiceURL, app.Config.AssessmentAPIKey)
		if err != nil {
			return err
		}
		streamClient = client
	}
	analysisSvc := analysis.NewService(streamClient, sessions)

	finder := matcher.MatchFinder(placeholderFinder{})
	if strings.TrimSpace(app.Config.MatchingServiceURL) != "" {
		client, err := matcher.NewClient(app.Config.MatchingServiceURL, app.Config.MatchingAPIKey)
		if err != nil {
			return err
		}
		finder = client
	}
	matcherSvc := &matcher.Service{
		Docs:     docRepo,
		Controls: controlsRepo,
		Matches:  matchRepo,
		Store:    app.Store,
		Finder:   finder,
		Views:    views,
	}

	app.ControlsRepo = controlsRepo
	app.DocumentsRepo = docRepo
	app.MatchesRepo = matchRepo
	app.Views = views
	app.Sessions = sessions
	app.DocumentsService = docSvc
	app.MatchesService = matchSvc
	app.AnalysisService = analysisSvc
	app.MatcherService = matcherSvc
	app.ControlsHandler = controls.NewHandler(controlsRepo, matchRepo, views)
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.MatchesHandler = matches.NewHandler(matchRepo, matchSvc, controlsRepo)
	app.AnalysisHandler = analysis.NewHandler(analysisSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
	)

	if app.ControlsHandler == nil || app.MatchesHandler == nil || app.AnalysisHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

type placeholderStreamClient struct{}

func (placeholderStreamClient) OpenStream(ctx context.Context, linkID string, req analysis.Request) (io.ReadCloser, error) {
	_ = ctx
	_ = linkID
	_ = req
	return nil, &analysis.RequestError{StatusCode: 503, Message: "assessment service not configured"}
}

type placeholderFinder struct{}

func (placeholderFinder) FindMatches(ctx context.Context, controlID, documentText string, questions []matcher.QuestionInput) ([]matcher.Candidate, error) {
	_ = ctx
	_ = controlID
	_ = documentText
	_ = questions
	return nil, errors.New("matching service not configured")
}
