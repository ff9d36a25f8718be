package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/api"
	"github.com/faceguard/core/internal/config"
	"github.com/faceguard/core/internal/dataservice"
	"github.com/faceguard/core/internal/delivery"
	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/eventbus"
	"github.com/faceguard/core/internal/frames"
	"github.com/faceguard/core/internal/metrics"
	"github.com/faceguard/core/internal/orchestrator"
	"github.com/faceguard/core/internal/recognition"
	"github.com/faceguard/core/internal/ruleconfig"
	"github.com/faceguard/core/internal/sightings"
	"github.com/faceguard/core/internal/vectorindex"
)

const serviceName = "faceguard-core"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// 1. Rule-config store (Postgres) — FaceGuard's own AlertRule/
	// NotificationChannel/HighPriorityPerson/NotificationContact tables,
	// distinct from the external core-data-service.
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	store := ruleconfig.NewStore(db, channelEncryptionKey(cfg.EncryptionKey))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.SeedRules(ctx, store, cfg.RulesConfigPath); err != nil {
		log.Printf("rule seed warning: %v", err)
	}
	config.WatchFile(ctx, cfg.RulesConfigPath, func() {
		if err := config.SeedRules(ctx, store, cfg.RulesConfigPath); err != nil {
			log.Printf("rule reload error: %v", err)
		}
	})

	// 2. Redis (event history) + NATS (event bus bridge).
	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort), DB: cfg.RedisDB})

	var natsPub *eventbus.NATSPublisher
	nc, err := nats.Connect(cfg.NATSURL, nats.Name(serviceName))
	if err != nil {
		log.Printf("nats connect warning: %v (event bridge disabled)", err)
	} else {
		defer nc.Close()
		natsPub = eventbus.NewNATSPublisher(nc, cfg.EventChannel, 3)
	}

	rooms := eventbus.NewRoomRegistry()
	history := eventbus.NewHistory(rdb, cfg.EventBatchSize)
	bus := eventbus.NewBus(natsPub, history, rooms)

	// 3. External collaborators: recognition engine and core data service.
	integrationTimeout := time.Duration(cfg.IntegrationTimeout) * time.Second
	recognitionClient := recognition.NewClient(cfg.FaceRecognitionServiceURL, integrationTimeout, cfg.IntegrationRetryAttempts)
	dataClient := dataservice.NewClient(cfg.CoreDataServiceURL, integrationTimeout)

	caches := vectorindex.NewCaches()
	cachedRecognizer := &recognition.CachingProcessor{Next: recognitionClient, Caches: caches}
	vectorIndex := vectorindex.NewIndex()
	_ = vectorIndex // enrolled/populated out-of-band by the external data service; held for future local-match wiring

	// 4. Delivery engine: per-type adapters, rate limit + breaker live
	// inside the engine itself.
	recordStore := delivery.NewRecordStore(cfg.CoreDataServiceURL, integrationTimeout)
	adapters := map[domain.ChannelType]delivery.Adapter{
		domain.ChannelEmail:     delivery.EmailAdapter{To: func(a domain.AlertInstance) string { return a.TriggerData["recipient"] }},
		domain.ChannelSMS:       delivery.SMSAdapter{To: func(a domain.AlertInstance) string { return a.TriggerData["recipient"] }},
		domain.ChannelWebhook:   delivery.WebhookAdapter{},
		domain.ChannelWebSocket: delivery.WebSocketAdapter{Broadcaster: bus},
	}
	engine := delivery.NewEngine(store, recordStore, adapters)

	// 5. Alert evaluator, wired to the rule store, the data service's
	// high-priority/contact lookups, the delivery engine, and the bus.
	evaluator := alerts.NewEvaluator(store, dataClient, engine, bus)
	evaluator.WithCameraLocator(func(cameraID string) string { return cameraID })
	evaluator.DefaultChannels = defaultChannelsByContactType(ctx, store)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evaluator.RunEscalationScan(ctx)
			}
		}
	}()

	uploader := &evaluatingUploader{data: dataClient, evaluator: evaluator}
	queue := sightings.NewQueue(uploader)
	queue.Start(ctx)
	defer queue.Stop(10 * time.Second)

	// 6. Camera manager: registry + supervisor + health monitor.
	registry := orchestrator.NewRegistry()
	opener := frames.MultiOpener{HTTP: frames.HTTPOpener{Timeout: integrationTimeout}}
	decoder := frames.StdDecoder{}

	supCfg := orchestrator.Config{
		MaxConcurrentCameras: cfg.MaxConcurrentCameras,
		ConfidenceThreshold:  0.6,
		QualityThreshold:     cfg.FrameQualityThreshold,
		EventChannel:         cfg.EventChannel,
	}
	supervisor := orchestrator.NewSupervisor(registry, opener, decoder, cachedRecognizer, queue, bus, supCfg)

	for _, source := range cfg.CameraSources {
		cam := domain.Camera{
			ID:        source,
			Name:      source,
			SourceURI: source,
			FrameRate: cfg.CameraFrameRate,
			Width:     cfg.CameraResolutionWidth,
			Height:    cfg.CameraResolutionHeight,
			Enabled:   true,
			Reconnect: domain.ReconnectPolicy{MaxAttempts: cfg.CameraReconnectAttempts, DelaySecs: cfg.CameraReconnectDelay},
		}
		if err := registry.Add(cam); err != nil {
			log.Printf("camera %s register warning: %v", cam.ID, err)
			continue
		}
		if cfg.Features.MultiCamera || len(cfg.CameraSources) == 1 {
			if err := supervisor.StartCamera(cam.ID); err != nil {
				log.Printf("camera %s start warning: %v", cam.ID, err)
			}
		}
	}

	var healthMonitor *orchestrator.HealthMonitor
	if cfg.Features.HealthMonitoring {
		healthMonitor = orchestrator.NewHealthMonitor(registry, supervisor, orchestrator.HealthMonitorConfig{
			Interval:   time.Duration(cfg.CameraHealthCheckInterval) * time.Second,
		})
		healthMonitor.Start()
		defer healthMonitor.Stop()
	}

	// 7. Metrics.
	channelIDs := channelIDList(ctx, store)
	collector := metrics.NewCollector(metrics.Config{
		Registry: registry, Queue: queue, Engine: engine, Cooldowns: evaluator.Cooldowns, ChannelIDs: channelIDs,
	})
	go collector.Start(ctx)

	// 8. HTTP surface.
	deps := api.Deps{
		Cameras:    &api.CameraHandlers{Registry: registry, Supervisor: supervisor},
		Health:     &api.HealthHandlers{Registry: registry, Queue: queue, StartedAt: time.Now()},
		Alerts:     &api.AlertHandlers{Rules: store, Evaluator: evaluator},
		Channels:   &api.ChannelHandlers{Channels: store, Adapters: adapters},
		Delivery:   &api.DeliveryHandlers{Engine: engine, Records: recordStore},
		Evaluation: &api.EvaluationHandlers{Evaluator: evaluator},
		Webhook:    &api.WebhookIngestHandlers{Evaluator: evaluator, Secret: cfg.WebhookIngestSecret},
		WebSocket:  &api.WebSocketHandlers{Rooms: rooms},
	}
	router := api.NewRouter(deps)

	topMux := http.NewServeMux()
	topMux.Handle("/", router)
	topMux.Handle("/metrics", collector.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.ServiceHost, cfg.ServicePort)
	server := &http.Server{Addr: addr, Handler: topMux}

	go func() {
		log.Printf("faceguard listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if healthMonitor != nil {
		healthMonitor.Stop()
	}
	for _, cam := range registry.List() {
		supervisor.StopCamera(cam.ID)
	}
	queue.Stop(10 * time.Second)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("stopped")
}

// channelEncryptionKey derives a stable 32-byte AES key from the
// configured secret so operators can supply any length passphrase, the
// same role internal/crypto.Keyring.LoadFromEnv plays for the teacher's
// credential store.
func channelEncryptionKey(secret string) []byte {
	if secret == "" {
		secret = "dev-only-channel-key-do-not-use-in-prod"
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func channelIDList(ctx context.Context, store *ruleconfig.Store) []string {
	channels, err := store.ListChannels(ctx)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(channels))
	for _, c := range channels {
		ids = append(ids, c.ID)
	}
	return ids
}

// defaultChannelsByContactType picks the first active channel of the
// matching type for each contact type spec.md's escalation path can
// notify, so Evaluator.DefaultChannels has something to dispatch through
// out of the box; operators can still set channel ids explicitly per rule.
func defaultChannelsByContactType(ctx context.Context, store *ruleconfig.Store) map[domain.ContactType]string {
	channels, err := store.ListChannels(ctx)
	if err != nil {
		return nil
	}
	out := make(map[domain.ContactType]string)
	for _, c := range channels {
		if !c.IsActive {
			continue
		}
		switch c.Type {
		case domain.ChannelEmail:
			if _, ok := out[domain.ContactEmail]; !ok {
				out[domain.ContactEmail] = c.ID
			}
		case domain.ChannelSMS:
			if _, ok := out[domain.ContactPhone]; !ok {
				out[domain.ContactPhone] = c.ID
			}
		case domain.ChannelWebhook:
			if _, ok := out[domain.ContactWebhook]; !ok {
				out[domain.ContactWebhook] = c.ID
			}
		}
	}
	return out
}

// evaluatingUploader wires the external data service's UploadSighting
// call to the local alert evaluator, satisfying sightings.Uploader.
type evaluatingUploader struct {
	data      *dataservice.Client
	evaluator *alerts.Evaluator
}

func (u *evaluatingUploader) UploadSighting(ctx context.Context, s domain.Sighting) (string, error) {
	var crop image.Image
	if len(s.CropJPEG) > 0 {
		if img, err := frames.StdDecoder{}.Decode(s.CropJPEG); err == nil {
			crop = img
		}
	}
	return u.data.UploadSighting(ctx, s, crop)
}

func (u *evaluatingUploader) Evaluate(ctx context.Context, s domain.Sighting) {
	u.evaluator.Evaluate(s)
}
