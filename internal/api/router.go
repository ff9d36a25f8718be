package api

import (
	"net/http"

	"github.com/faceguard/core/internal/middleware"
)

// Deps bundles every handler group NewRouter mounts. Built by the
// composition root once all components exist.
type Deps struct {
	Cameras    *CameraHandlers
	Health     *HealthHandlers
	Alerts     *AlertHandlers
	Channels   *ChannelHandlers
	Delivery   *DeliveryHandlers
	Evaluation *EvaluationHandlers
	Webhook    *WebhookIngestHandlers
	WebSocket  *WebSocketHandlers
}

// NewRouter wires the HTTP surface spec.md §6 names onto a Go 1.22+
// http.ServeMux, using method+pattern routes and r.PathValue for path
// parameters, grounded on the teacher's mux-based router.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cameras/", d.Cameras.ListCameras)
	mux.HandleFunc("POST /api/cameras/", d.Cameras.CreateCamera)
	mux.HandleFunc("GET /api/cameras/{id}", d.Cameras.GetCamera)
	mux.HandleFunc("PUT /api/cameras/{id}", d.Cameras.UpdateCamera)
	mux.HandleFunc("DELETE /api/cameras/{id}", d.Cameras.DeleteCamera)
	mux.HandleFunc("POST /api/cameras/{id}/connect", d.Cameras.ConnectCamera)
	mux.HandleFunc("POST /api/cameras/{id}/disconnect", d.Cameras.DisconnectCamera)
	mux.HandleFunc("POST /api/cameras/streams/control", d.Cameras.ControlStreams)
	mux.HandleFunc("POST /api/cameras/{id}/recognize", d.Cameras.RecognizeCamera)

	mux.HandleFunc("GET /api/health/", d.Health.Aggregate)
	mux.HandleFunc("GET /api/health/live", d.Health.Live)
	mux.HandleFunc("GET /api/health/ready", d.Health.Ready)

	mux.HandleFunc("GET /alerts/rules", d.Alerts.ListRules)
	mux.HandleFunc("POST /alerts/rules", d.Alerts.CreateRule)
	mux.HandleFunc("GET /alerts/rules/{id}", d.Alerts.GetRule)
	mux.HandleFunc("PUT /alerts/rules/{id}", d.Alerts.UpdateRule)
	mux.HandleFunc("DELETE /alerts/rules/{id}", d.Alerts.DeleteRule)
	mux.HandleFunc("GET /alerts/history", d.Alerts.History)
	mux.HandleFunc("POST /alerts/acknowledge/{id}", d.Alerts.Acknowledge)

	mux.HandleFunc("GET /channels", d.Channels.ListChannels)
	mux.HandleFunc("POST /channels", d.Channels.CreateChannel)
	mux.HandleFunc("POST /channels/{id}/test", d.Channels.TestChannel)

	mux.HandleFunc("POST /delivery/send", d.Delivery.Send)
	mux.HandleFunc("GET /delivery/logs", d.Delivery.Logs)

	mux.HandleFunc("POST /alert-evaluation/evaluate-sighting", d.Evaluation.EvaluateSighting)
	mux.HandleFunc("POST /webhook/recognition/sighting", d.Webhook.IngestSighting)

	mux.HandleFunc("GET /ws/alerts", d.WebSocket.serve("alerts"))
	mux.HandleFunc("GET /ws/notifications", d.WebSocket.serve("notifications"))
	mux.HandleFunc("GET /ws/system", d.WebSocket.serve("system"))
	mux.HandleFunc("GET /ws/dashboard", d.WebSocket.serve("dashboard"))

	return middleware.RequestLogger(middleware.CORS(mux))
}
