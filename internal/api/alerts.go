package api

import (
	"net/http"
	"time"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/ruleconfig"
)

// AlertHandlers backs /alerts/rules, /alerts/history, /alerts/acknowledge,
// delegating rule persistence to ruleconfig.Store and instance state to
// the evaluator's InstanceStore.
type AlertHandlers struct {
	Rules     *ruleconfig.Store
	Evaluator *alerts.Evaluator
}

type timeRangeWire struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

type conditionsWire struct {
	PersonIDs       []string        `json:"person_ids,omitempty"`
	ExcludedPersons []string        `json:"excluded_persons,omitempty"`
	CameraIDs       []string        `json:"camera_ids,omitempty"`
	ConfidenceMin   *float64        `json:"confidence_min,omitempty"`
	ConfidenceMax   *float64        `json:"confidence_max,omitempty"`
	TimeRanges      []timeRangeWire `json:"time_ranges,omitempty"`
	Departments     []string        `json:"departments,omitempty"`
	MinAccessLevel  *int            `json:"min_access_level,omitempty"`
	AnyPerson       bool            `json:"any_person,omitempty"`
}

func setOf(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

func listOf(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func conditionsFromWire(c conditionsWire) domain.TriggerConditions {
	ranges := make([]domain.TimeRange, 0, len(c.TimeRanges))
	for _, tr := range c.TimeRanges {
		ranges = append(ranges, domain.TimeRange{StartHour: tr.StartHour, EndHour: tr.EndHour})
	}
	return domain.TriggerConditions{
		PersonIDs:       setOf(c.PersonIDs),
		ExcludedPersons: setOf(c.ExcludedPersons),
		CameraIDs:       setOf(c.CameraIDs),
		ConfidenceMin:   c.ConfidenceMin,
		ConfidenceMax:   c.ConfidenceMax,
		TimeRanges:      ranges,
		Departments:     setOf(c.Departments),
		MinAccessLevel:  c.MinAccessLevel,
		AnyPerson:       c.AnyPerson,
	}
}

func wireConditions(c domain.TriggerConditions) conditionsWire {
	ranges := make([]timeRangeWire, 0, len(c.TimeRanges))
	for _, tr := range c.TimeRanges {
		ranges = append(ranges, timeRangeWire{StartHour: tr.StartHour, EndHour: tr.EndHour})
	}
	return conditionsWire{
		PersonIDs:       listOf(c.PersonIDs),
		ExcludedPersons: listOf(c.ExcludedPersons),
		CameraIDs:       listOf(c.CameraIDs),
		ConfidenceMin:   c.ConfidenceMin,
		ConfidenceMax:   c.ConfidenceMax,
		TimeRanges:      ranges,
		Departments:     listOf(c.Departments),
		MinAccessLevel:  c.MinAccessLevel,
		AnyPerson:       c.AnyPerson,
	}
}

type ruleWire struct {
	ID                   string         `json:"id,omitempty"`
	Name                 string         `json:"name"`
	Priority             string         `json:"priority"`
	Conditions           conditionsWire `json:"conditions"`
	CooldownMinutes      int            `json:"cooldown_minutes"`
	EscalationMinutes    *int           `json:"escalation_minutes,omitempty"`
	AutoResolveMinutes   *int           `json:"auto_resolve_minutes,omitempty"`
	NotificationChannels []string       `json:"notification_channels,omitempty"`
	NotificationTemplate string         `json:"notification_template,omitempty"`
	IsActive             bool           `json:"is_active"`
}

func wireRule(r domain.AlertRule) ruleWire {
	return ruleWire{
		ID: r.ID, Name: r.Name, Priority: string(r.Priority), Conditions: wireConditions(r.Conditions),
		CooldownMinutes: r.CooldownMinutes, EscalationMinutes: r.EscalationMinutes, AutoResolveMinutes: r.AutoResolveMinutes,
		NotificationChannels: r.NotificationChannels, NotificationTemplate: r.NotificationTemplate, IsActive: r.IsActive,
	}
}

func ruleFromWire(w ruleWire) domain.AlertRule {
	return domain.AlertRule{
		ID: w.ID, Name: w.Name, Priority: domain.Priority(w.Priority), Conditions: conditionsFromWire(w.Conditions),
		CooldownMinutes: w.CooldownMinutes, EscalationMinutes: w.EscalationMinutes, AutoResolveMinutes: w.AutoResolveMinutes,
		NotificationChannels: w.NotificationChannels, NotificationTemplate: w.NotificationTemplate, IsActive: w.IsActive,
	}
}

// ListRules handles GET /alerts/rules.
func (h *AlertHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.ListRules(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "persistenceError", err.Error())
		return
	}
	out := make([]ruleWire, 0, len(rules))
	for _, rule := range rules {
		out = append(out, wireRule(rule))
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateRule handles POST /alerts/rules.
func (h *AlertHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var wire ruleWire
	if err := decodeJSON(r, &wire); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	if wire.Name == "" {
		respondError(w, http.StatusBadRequest, "validationError", "name is required")
		return
	}
	rule := ruleFromWire(wire)
	if err := h.Rules.CreateRule(r.Context(), &rule); err != nil {
		respondError(w, http.StatusInternalServerError, "persistenceError", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, wireRule(rule))
}

// GetRule handles GET /alerts/rules/{id}.
func (h *AlertHandlers) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Rules.Rule(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wireRule(rule))
}

// UpdateRule handles PUT /alerts/rules/{id}.
func (h *AlertHandlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var wire ruleWire
	if err := decodeJSON(r, &wire); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	wire.ID = r.PathValue("id")
	rule := ruleFromWire(wire)
	if err := h.Rules.UpdateRule(r.Context(), rule); err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wireRule(rule))
}

// DeleteRule handles DELETE /alerts/rules/{id}.
func (h *AlertHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Rules.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type alertInstanceWire struct {
	ID             string         `json:"id"`
	RuleID         string         `json:"rule_id"`
	PersonID       string         `json:"person_id"`
	CameraID       string         `json:"camera_id"`
	SightingID     string         `json:"sighting_id"`
	Priority       string         `json:"priority"`
	Status         string         `json:"status"`
	TriggerData    map[string]any `json:"trigger_data,omitempty"`
	TriggeredAt    time.Time      `json:"triggered_at"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string         `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy     string         `json:"resolved_by,omitempty"`
}

func wireAlertInstance(a domain.AlertInstance) alertInstanceWire {
	return alertInstanceWire{
		ID: a.ID, RuleID: a.RuleID, PersonID: a.PersonID, CameraID: a.CameraID, SightingID: a.SightingID,
		Priority: string(a.Priority), Status: string(a.Status), TriggerData: a.TriggerData, TriggeredAt: a.TriggeredAt,
		AcknowledgedAt: a.AcknowledgedAt, AcknowledgedBy: a.AcknowledgedBy, ResolvedAt: a.ResolvedAt, ResolvedBy: a.ResolvedBy,
	}
}

// History handles GET /alerts/history?person_id=&camera_id=&status=&since=.
func (h *AlertHandlers) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := alerts.Filter{
		PersonID: q.Get("person_id"),
		CameraID: q.Get("camera_id"),
		Status:   domain.AlertStatus(q.Get("status")),
	}
	if since := q.Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = t
		}
	}
	instances := h.Evaluator.Instances.List(f)
	out := make([]alertInstanceWire, 0, len(instances))
	for _, a := range instances {
		out = append(out, wireAlertInstance(a))
	}
	respondJSON(w, http.StatusOK, out)
}

type acknowledgeRequest struct {
	By string `json:"by"`
}

// Acknowledge handles POST /alerts/acknowledge/{id}.
func (h *AlertHandlers) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	_ = decodeJSON(r, &req)
	id := r.PathValue("id")
	if !h.Evaluator.Instances.Acknowledge(id, req.By) {
		respondError(w, http.StatusNotFound, "validationError", "alert not found or already resolved")
		return
	}
	alert, _ := h.Evaluator.Instances.Get(id)
	respondJSON(w, http.StatusOK, wireAlertInstance(alert))
}
