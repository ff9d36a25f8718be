package metrics_test

import (
	"context"
	"image"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/delivery"
	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/metrics"
	"github.com/faceguard/core/internal/orchestrator"
	"github.com/faceguard/core/internal/sightings"
)

type nilChannelStore struct{}

func (nilChannelStore) Channel(ctx context.Context, id string) (domain.NotificationChannel, error) {
	return domain.NotificationChannel{}, nil
}

type noopUploader struct{}

func (noopUploader) UploadSighting(ctx context.Context, s domain.Sighting) (string, error) {
	return "id", nil
}
func (noopUploader) Evaluate(ctx context.Context, s domain.Sighting) {}

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rr, req)
	body, err := io.ReadAll(rr.Result().Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestCollector_CamerasGauges(t *testing.T) {
	registry := orchestrator.NewRegistry()
	registry.Add(domain.Camera{ID: "cam-1", Enabled: true})
	registry.Add(domain.Camera{ID: "cam-2", Enabled: true})
	registry.Add(domain.Camera{ID: "cam-3", Enabled: false})
	registry.Mutate("cam-1", func(c *domain.Camera) { c.Status = domain.CameraConnected })
	registry.Mutate("cam-2", func(c *domain.Camera) { c.Status = domain.CameraError })

	c := metrics.NewCollector(metrics.Config{Registry: registry})
	// Start's collection ticker fires every 2s; wait just past one tick.
	ctx, cancel := context.WithTimeout(context.Background(), 2200*time.Millisecond)
	defer cancel()
	go c.Start(ctx)
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `faceguard_cameras_connected 1`) {
		t.Errorf("expected one connected camera, got body:\n%s", body)
	}
	if !strings.Contains(body, `faceguard_cameras_errored 1`) {
		t.Errorf("expected one errored camera, got body:\n%s", body)
	}
}

func TestCollector_QueueAndCooldownGauges(t *testing.T) {
	queue := sightings.NewQueue(noopUploader{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	outcome := sightings.RecognitionOutcome{Persons: []domain.FaceDetection{{MatchedPersonID: "person-1"}}}
	queue.CaptureAsync(img, outcome, "cam-1", &domain.Frame{ID: "f1"})
	time.Sleep(20 * time.Millisecond)
	queue.Stop(time.Second)

	cooldowns := alerts.NewCooldowns()
	cooldowns.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute)
	cooldowns.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute)

	c := metrics.NewCollector(metrics.Config{Queue: queue, Cooldowns: cooldowns})
	collectCtx, cancelCollect := context.WithTimeout(context.Background(), 2200*time.Millisecond)
	defer cancelCollect()
	go c.Start(collectCtx)
	<-collectCtx.Done()
	time.Sleep(50 * time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `faceguard_alert_cooldown_skipped_total 1`) {
		t.Errorf("expected one skipped cooldown, got body:\n%s", body)
	}
	if !strings.Contains(body, `faceguard_sighting_queue_captured_total 1`) {
		t.Errorf("expected one captured sighting, got body:\n%s", body)
	}
}

func TestCollector_DeliveryBreakerGauges(t *testing.T) {
	engine := delivery.NewEngine(nilChannelStore{}, nil, nil)
	c := metrics.NewCollector(metrics.Config{Engine: engine, ChannelIDs: []string{"ch-1"}})
	ctx, cancel := context.WithTimeout(context.Background(), 2200*time.Millisecond)
	defer cancel()
	go c.Start(ctx)
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `faceguard_delivery_breaker_state{channel_id="ch-1"} 0`) {
		t.Errorf("expected a closed (0) breaker gauge for ch-1, got body:\n%s", body)
	}
}
