package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository"
	"github.com/Guyuepp/likers-match/internal/repository/dynamo"
	mysqlRepo "github.com/Guyuepp/likers-match/internal/repository/mysql"
	myRedis "github.com/Guyuepp/likers-match/internal/repository/redis"
	"github.com/Guyuepp/likers-match/internal/rest"
	"github.com/Guyuepp/likers-match/internal/rest/middleware"
	"github.com/Guyuepp/likers-match/internal/scoring"
	"github.com/Guyuepp/likers-match/internal/usecase/feed"
	"github.com/Guyuepp/likers-match/internal/usecase/match"
	"github.com/Guyuepp/likers-match/internal/usecase/swipe"
	"github.com/Guyuepp/likers-match/internal/workers"
)

const (
	defaultTimeout     = 30
	defaultAddress     = ":9090"
	defaultCacheDB     = 0
	dbMaxRetry         = 10
	dbRetryIntervalSec = 2
)

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file loaded, using the process environment")
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if os.Getenv("LOG_FORMAT") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// envInt reads a positive integer, falling back to def
func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		if os.Getenv(key) != "" {
			logrus.Warnf("failed to parse %s, using default %d", key, def)
		}
		return def
	}
	return v
}

func openDB() *gorm.DB {
	dbHost := os.Getenv("DATABASE_HOST")
	dbPort := os.Getenv("DATABASE_PORT")
	dbUser := os.Getenv("DATABASE_USER")
	dbPass := os.Getenv("DATABASE_PASS")
	dbName := os.Getenv("DATABASE_NAME")
	connection := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPass, dbHost, dbPort, dbName)
	val := url.Values{}
	val.Add("parseTime", "1")
	val.Add("loc", "UTC")
	dsn := fmt.Sprintf("%s?%s", connection, val.Encode())

	var (
		db  *gorm.DB
		err error
	)
	for i := range dbMaxRetry {
		db, err = gorm.Open(gormmysql.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			logrus.Warnf("failed to open connection to database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
		} else {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
				logrus.Warnf("failed to get sql.DB from gorm.DB (attempt %d/%d): %v", i+1, dbMaxRetry, err)
				continue
			}
			err = sqlDB.Ping()
			if err == nil {
				break
			}
			logrus.Warnf("failed to ping database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
			_ = sqlDB.Close()
		}

		time.Sleep(dbRetryIntervalSec * time.Second)
	}
	if err != nil {
		logrus.Fatal("could not connect to database after retries: ", err)
	}
	return db
}

func openCache() *redis.Client {
	cacheDB, err := strconv.Atoi(os.Getenv("CACHE_DB"))
	if err != nil {
		cacheDB = defaultCacheDB
	}
	client := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("CACHE_HOST") + ":" + os.Getenv("CACHE_PORT"),
		Password: os.Getenv("CACHE_PASS"),
		DB:       cacheDB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logrus.Fatal("failed to open connection to cache: ", err)
	}
	return client
}

func profileStore(ctx context.Context, db *gorm.DB) domain.ProfileStore {
	switch backend := os.Getenv("PROFILE_BACKEND"); backend {
	case "", "mysql":
		return mysqlRepo.NewProfileRepository(db)
	case "dynamo":
		var opts []func(*config.LoadOptions) error
		if region := os.Getenv("AWS_REGION"); region != "" {
			opts = append(opts, config.WithRegion(region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			logrus.Fatal("failed to load aws config: ", err)
		}
		table := os.Getenv("DYNAMO_PROFILE_TABLE")
		if table == "" {
			table = dynamo.DefaultProfileTable
		}
		return dynamo.NewProfileRepository(dynamodb.NewFromConfig(cfg), table)
	default:
		logrus.Fatalf("unknown PROFILE_BACKEND %q", backend)
		return nil
	}
}

func scoringCalculator() *scoring.Calculator {
	path := os.Getenv("SCORING_WEIGHTS_FILE")
	if path == "" {
		return scoring.NewCalculator(scoring.DefaultWeights)
	}
	w, err := scoring.LoadWeights(path)
	if err != nil {
		logrus.Fatal("failed to load scoring weights: ", err)
	}
	logrus.Infof("scoring weights loaded from %s", path)
	return scoring.NewCalculator(w)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// prepare database
	db := openDB()
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			logrus.Error("got error when getting sql.DB from gorm.DB: ", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			logrus.Error("got error when closing the DB connection: ", err)
		}
	}()
	if err := mysqlRepo.AutoMigrate(db); err != nil {
		logrus.Fatal("failed to migrate database: ", err)
	}

	// prepare cache
	client := openCache()
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Error("got error when closing the cache connection: ", err)
		}
	}()

	// Prepare Repository
	ledgerRepo := mysqlRepo.NewLedgerRepository(db)
	matchRepo := mysqlRepo.NewMatchRepository(db)
	profiles := profileStore(ctx, db)

	// block list: DB source of truth behind the redis cache
	blockTTL := time.Duration(envInt("BLOCKLIST_TTL_SECONDS", int(repository.DefaultBlockListTTL/time.Second))) * time.Second
	blockList := repository.NewBlockListRepository(mysqlRepo.NewBlockRepository(db), myRedis.NewBlockCache(client), blockTTL)

	ledgerFeed := myRedis.NewLedgerFeed(client)

	// Start worker
	publisher := workers.NewPublishChangesWorker(ledgerFeed)
	go publisher.Start(ctx)

	// Build service Layer
	calc := scoringCalculator()
	pageSize := int64(envInt("FEED_PAGE_SIZE", domain.DefaultFeedPageSize))
	committer := match.NewCommitter(matchRepo, publisher, ledgerFeed)
	sessions := feed.NewManager(
		func() *feed.Feed {
			return feed.NewFeed(ledgerRepo, profiles, blockList, publisher, calc, pageSize)
		},
		ledgerFeed,
		func(viewerID string, f *feed.Feed) domain.MatchUsecase {
			return match.NewCoordinator(viewerID, f, ledgerRepo, committer)
		},
		time.Duration(envInt("SESSION_IDLE_MINUTES", int(feed.DefaultSessionIdle/time.Minute)))*time.Minute,
	)
	sessionsDone := make(chan struct{})
	go func() {
		sessions.Run(ctx)
		close(sessionsDone)
	}()

	swipeSvc := swipe.NewService(ledgerRepo, committer, publisher)
	likersHandler := rest.NewLikersHandler(sessions)
	swipeHandler := rest.NewSwipeHandler(swipeSvc)

	// prepare gin
	route := gin.Default()
	timeoutContext := time.Duration(envInt("CONTEXT_TIMEOUT", defaultTimeout)) * time.Second
	route.Use(middleware.SetRequestContextWithTimeout(timeoutContext))

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logrus.Fatal("JWT_SECRET is required")
	}
	authMiddleware := middleware.AuthMiddleware(jwtSecret)

	// Register routes
	route.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authorized := route.Group("/")
	authorized.Use(authMiddleware)
	{
		authorized.GET("/likers", likersHandler.GetLikers)
		authorized.POST("/likers/more", likersHandler.More)
		authorized.POST("/likers/refetch", likersHandler.Refetch)
		authorized.DELETE("/likers/session", likersHandler.CloseSession)
		authorized.POST("/likers/:eventId/like", likersHandler.LikeBack)
		authorized.POST("/likers/:eventId/pass", likersHandler.Pass)
		authorized.POST("/likers/:eventId/consume", likersHandler.MarkConsumed)
		authorized.POST("/swipes", swipeHandler.Record)
	}

	// Start Server
	address := os.Getenv("SERVER_ADDRESS")
	if address == "" {
		address = defaultAddress
	}
	srv := &http.Server{
		Addr: address,
		Handler: cors.New(cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler(route),
	}
	go func() {
		logrus.Infof("Server is running on %s", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	logrus.Info("Waiting for sessions and worker to cleanup...")
	<-sessionsDone
	time.Sleep(2 * time.Second)

	logrus.Info("Server exiting")
}
