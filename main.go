package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	api "cyra-kanban/cmd/api"
	activitydomain "cyra-kanban/internal/activity/domain"
	activityRepo "cyra-kanban/internal/activity/repository"
	activityUsecase "cyra-kanban/internal/activity/usecase"
	authdomain "cyra-kanban/internal/auth/domain"
	authRepo "cyra-kanban/internal/auth/repository"
	authUsecase "cyra-kanban/internal/auth/usecase"
	automationUsecase "cyra-kanban/internal/automation/usecase"
	calendardomain "cyra-kanban/internal/calendar/domain"
	calendarRepo "cyra-kanban/internal/calendar/repository"
	calendarUsecase "cyra-kanban/internal/calendar/usecase"
	clientdomain "cyra-kanban/internal/client/domain"
	clientRepo "cyra-kanban/internal/client/repository"
	clientUsecase "cyra-kanban/internal/client/usecase"
	"cyra-kanban/internal/notification"
	taskdomain "cyra-kanban/internal/task/domain"
	taskRepo "cyra-kanban/internal/task/repository"
	"cyra-kanban/internal/task/scheduler"
	taskUsecase "cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/database"
	"cyra-kanban/pkg/fcm"
	"cyra-kanban/pkg/gcal"
	"cyra-kanban/pkg/logger"
	"cyra-kanban/pkg/position"
	"cyra-kanban/pkg/sse"
	"cyra-kanban/pkg/storage"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.Migrate(db,
		&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{},
		&taskdomain.Task{}, &taskdomain.Subtask{}, &taskdomain.Attachment{},
		&calendardomain.UserSettings{},
		&activitydomain.Note{}, &activitydomain.LogEntry{}, &activitydomain.AgentStatus{},
		&clientdomain.Client{}, &clientdomain.Product{},
	); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	taskRepository := taskRepo.NewGormTaskRepository(db)
	subtaskRepository := taskRepo.NewGormSubtaskRepository(db)
	attachmentRepository := taskRepo.NewGormAttachmentRepository(db)
	settingsRepository := calendarRepo.NewSettingsRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()
	defer sseManager.Close()

	// Change feed: local SSE fan-out, relayed through Pub/Sub when a project is configured
	var publisher notification.Publisher = notification.NewLocalPublisher(sseManager)
	if cfg.GoogleProjectID != "" {
		relay, err := notification.NewPubSubRelay(ctx, cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials, publisher)
		if err != nil {
			log.Error("[PubSub] Failed to initialize relay, using local delivery only", zap.Error(err))
		} else {
			go relay.Start(ctx)
			defer func() { _ = relay.Close() }()
			publisher = relay
		}
	} else {
		log.Warn("[PubSub] GOOGLE_PROJECT_ID not configured, change feed is local to this instance")
	}

	var pusher notification.Pusher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Warn("[FCM] Failed to initialize client, push notifications disabled", zap.Error(err))
		} else {
			pusher = fcmClient
		}
	}
	feed := notification.NewFeed(publisher, pusher, fcmTokenRepo, cfg.AppURL)

	// Position allocation: Redis counters when available, max+1 otherwise
	var positions position.Allocator = position.NewDBAllocator(taskRepository.MaxPosition)
	if cfg.RedisAddr != "" {
		rdb, err := position.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("[Redis] Unavailable, falling back to database positions", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			positions = position.NewRedisAllocator(rdb, taskRepository.MaxPosition)
		}
	}

	// Google Calendar
	var gateway calendarUsecase.Gateway
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		gateway = gcal.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	} else {
		log.Warn("[CalendarSync] Google OAuth client not configured, calendar sync disabled")
	}
	calendarUsecaseInstance := calendarUsecase.NewCalendarUsecase(settingsRepository, taskRepository, gateway, cfg,
		calendarUsecase.WithPublisher(feed))

	// Task usecase
	taskOpts := []taskUsecase.Option{
		taskUsecase.WithCalendarSync(calendarUsecaseInstance),
		taskUsecase.WithPublisher(feed),
	}
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
		})
		if err != nil {
			log.Warn("[Storage] Failed to initialize object store, attachments disabled", zap.Error(err))
		} else {
			taskOpts = append(taskOpts, taskUsecase.WithObjectStore(store))
		}
	}
	taskUsecaseInstance := taskUsecase.NewTaskUsecase(taskRepository, subtaskRepository, attachmentRepository, positions, cfg, taskOpts...)

	archiveScheduler := scheduler.NewArchiveScheduler(taskUsecaseInstance, cfg.ArchiveSweepInterval)
	if err := archiveScheduler.Start(); err != nil {
		log.Error("[TaskScheduler] Failed to start archive sweep", zap.Error(err))
	}
	defer archiveScheduler.Stop()

	// Remaining use cases
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)
	activityUsecaseInstance := activityUsecase.NewActivityUsecase(
		activityRepo.NewNoteRepository(db),
		activityRepo.NewLogRepository(db),
		activityRepo.NewStatusRepository(db),
		feed,
	)
	clientUsecaseInstance := clientUsecase.NewClientUsecase(clientRepo.NewClientRepository(db), clientRepo.NewProductRepository(db))
	automationUsecaseInstance := automationUsecase.NewAutomationUsecase(taskUsecaseInstance, activityUsecaseInstance, clientUsecaseInstance)

	// Initialize HTTP handler
	handler := api.NewHandler(api.Deps{
		AuthUsecase:       authUsecaseInstance,
		TaskUsecase:       taskUsecaseInstance,
		CalendarUsecase:   calendarUsecaseInstance,
		ActivityUsecase:   activityUsecaseInstance,
		ClientUsecase:     clientUsecaseInstance,
		AutomationUsecase: automationUsecaseInstance,
		Owners:            automationUsecase.NewOwnerResolver(cfg.OwnerUserID, cfg.OwnerEmail, userRepo),
		SSEManager:        sseManager,
		Config:            cfg,
	})

	// Start server
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
	}
}
