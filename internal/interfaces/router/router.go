package router

import (
	"net/http"

	authsvc "deedshare-backend/internal/application/auth"
	evtsvc "deedshare-backend/internal/application/events"
	"deedshare-backend/internal/application/ledger"
	mktsvc "deedshare-backend/internal/application/marketplace"
	propsvc "deedshare-backend/internal/application/properties"
	reqsvc "deedshare-backend/internal/application/requests"
	trsvc "deedshare-backend/internal/application/transfers"
	usersvc "deedshare-backend/internal/application/user"
	"deedshare-backend/internal/config"
	"deedshare-backend/internal/infrastructure/database"
	authhandler "deedshare-backend/internal/interfaces/handlers/auth"
	evthandler "deedshare-backend/internal/interfaces/handlers/events"
	healthhandler "deedshare-backend/internal/interfaces/handlers/health"
	mkthandler "deedshare-backend/internal/interfaces/handlers/marketplace"
	prophandler "deedshare-backend/internal/interfaces/handlers/properties"
	reqhandler "deedshare-backend/internal/interfaces/handlers/requests"
	trhandler "deedshare-backend/internal/interfaces/handlers/transfers"
	userhandler "deedshare-backend/internal/interfaces/handlers/user"
	"deedshare-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionHandler, redisClient, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redisClient
	app.Use(sessionHandler)
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	hh := &healthhandler.Handlers{Rdb: rdb}
	app.Get("/health", hh.JSON)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db != nil {
		recorder := &evtsvc.Recorder{Rdb: rdb}
		ledgerSvc := &ledger.Service{DB: db}

		// User registration is public; everything else needs a session.
		us := &usersvc.Service{DB: db}
		uh := &userhandler.Handlers{Service: us}
		app.Post("/api/v1/users/create-user", uh.CreateUser)

		// Tokenization requests
		rs := &reqsvc.Service{DB: db, Recorder: recorder}
		rh := &reqhandler.Handlers{Service: rs}
		rg := app.Group("/api/v1/requests", middleware.RequireAuth())
		rg.Post("/create-request", rh.CreateRequest)
		rg.Get("/my-requests", rh.MyRequests)
		rg.Get("/all", middleware.RequireAdmin(), rh.ListRequests)
		rg.Post("/:request_id/approve", middleware.RequireAdmin(), rh.ApproveRequest)
		rg.Post("/:request_id/reject", middleware.RequireAdmin(), rh.RejectRequest)
		rg.Get("/:request_id", rh.GetRequest)

		// Properties and holdings
		ps := &propsvc.Service{DB: db, Ledger: ledgerSvc}
		ph := &prophandler.Handlers{Service: ps, Ledger: ledgerSvc}
		pg := app.Group("/api/v1/properties", middleware.RequireAuth())
		pg.Get("/all", ph.ListProperties)
		pg.Get("/my-holdings", ph.MyHoldings)
		pg.Get("/:property_id/balance/:address", ph.Balance)
		pg.Get("/:property_id", ph.GetProperty)

		// Marketplace
		ms := &mktsvc.Service{DB: db, Recorder: recorder}
		mh := &mkthandler.Handlers{Service: ms}
		mg := app.Group("/api/v1/marketplace", middleware.RequireAuth())
		mg.Post("/create-listing", mh.CreateListing)
		mg.Post("/buy", mh.Buy)
		mg.Post("/cancel-listing", mh.CancelListing)
		mg.Get("/active-listings", mh.GetActiveListings)
		mg.Get("/my-listings", mh.MyListings)
		mg.Get("/properties/:property_id/listings", mh.PropertyListings)
		mg.Get("/listings/:listing_id", mh.GetListing)

		// Mediated transfers
		ts := &trsvc.Service{DB: db, Recorder: recorder, TTL: cfg.ProposalTTL}
		th := &trhandler.Handlers{Service: ts}
		tg := app.Group("/api/v1/transfers", middleware.RequireAuth())
		tg.Post("/propose", th.Propose)
		tg.Post("/:property_id/approve", th.Approve)
		tg.Post("/:property_id/approve-mediator", th.ApproveByMediator)
		tg.Post("/:property_id/reject", th.Reject)
		tg.Post("/:property_id/execute", th.Execute)
		tg.Get("/:property_id", th.Get)

		// Event log
		es := &evtsvc.Service{DB: db}
		eh := &evthandler.Handlers{Service: es}
		eg := app.Group("/api/v1/events", middleware.RequireAuth())
		eg.Get("/latest", eh.Latest)
		eg.Get("/my-events", eh.MyEvents)
		eg.Get("/properties/:property_id", eh.PropertyEvents)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
