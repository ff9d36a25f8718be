// Package alerts implements the two-tier business-rule evaluator (C5):
// evaluate() acknowledges within milliseconds by queueing background work,
// which runs the always-on basic rule plus the high-priority rule, checks
// cooldowns, resolves contacts, and dispatches to delivery.
package alerts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/faceguard/core/internal/dataservice"
	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

// PriorityResolver is the subset of internal/dataservice.Client the
// evaluator needs for Rule 2's person-priority lookup and contact
// resolution.
type PriorityResolver interface {
	CheckHighPriority(ctx context.Context, personID string) (dataservice.HighPriorityStatus, error)
	ContactLinks(ctx context.Context, personID string) ([]domain.HighPriorityContactLink, error)
	Contact(ctx context.Context, contactID string) (domain.NotificationContact, error)
}

// Dispatcher is the subset of internal/delivery.Engine the evaluator needs
// to fan out a notification to N channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert domain.AlertInstance, channelIDs []string, message string)
}

// DashboardPublisher is the subset of internal/eventbus.Bus the evaluator
// needs for Rule 1's always-on dashboard broadcast.
type DashboardPublisher interface {
	PublishAlert(room string, eventType string, alert domain.AlertInstance)
}

// RuleProvider supplies the configurable AlertRule set a sighting is
// matched against, backed by internal/ruleconfig.
type RuleProvider interface {
	ActiveRules(ctx context.Context) ([]domain.AlertRule, error)
}

type Evaluator struct {
	Rules      RuleProvider
	Priority   PriorityResolver
	Dispatcher Dispatcher
	Dashboard  DashboardPublisher
	Instances  *InstanceStore
	Cooldowns  *Cooldowns

	// DefaultChannels maps a contact's type to the NotificationChannel id
	// used to actually reach it (e.g. ContactPhone -> the configured SMS
	// channel's id). Set by the composition root once channels are loaded.
	DefaultChannels map[domain.ContactType]string

	cameraLocation func(cameraID string) string
}

func NewEvaluator(rules RuleProvider, priority PriorityResolver, dispatcher Dispatcher, dashboard DashboardPublisher) *Evaluator {
	return &Evaluator{
		Rules:      rules,
		Priority:   priority,
		Dispatcher: dispatcher,
		Dashboard:  dashboard,
		Instances:  NewInstanceStore(),
		Cooldowns:  NewCooldowns(),
	}
}

// WithCameraLocator lets the composition root supply a camera-id → display
// location function for message templating; defaults to the bare id.
func (e *Evaluator) WithCameraLocator(fn func(cameraID string) string) {
	e.cameraLocation = fn
}

func (e *Evaluator) locationOf(cameraID string) string {
	if e.cameraLocation == nil {
		return cameraID
	}
	return e.cameraLocation(cameraID)
}

type EvaluationResult struct {
	Status string
}

// Evaluate is the public contract spec.md §4.6 names: it must return
// "queued" within ~10ms by handing the real work to a background
// goroutine and never blocking on it.
func (e *Evaluator) Evaluate(sighting domain.Sighting) EvaluationResult {
	go e.runRules(context.Background(), sighting)
	return EvaluationResult{Status: "queued"}
}

func (e *Evaluator) runRules(ctx context.Context, s domain.Sighting) {
	e.runBasicRule(ctx, s)
	e.runConfigurableRules(ctx, s)
	e.runHighPriorityRule(ctx, s)
}

// runBasicRule is spec.md §4.6 Rule 1: every recognized person gets a
// low-priority dashboard-only alert, no cooldown, no channel fan-out
// beyond the realtime broadcast.
func (e *Evaluator) runBasicRule(ctx context.Context, s domain.Sighting) {
	alert := domain.AlertInstance{
		ID:          uuid.NewString(),
		RuleID:      "basic",
		PersonID:    s.PersonID,
		CameraID:    s.CameraID,
		SightingID:  s.ID,
		Priority:    domain.PriorityLow,
		Status:      domain.AlertActive,
		TriggeredAt: time.Now(),
		TriggerData: map[string]any{
			"message": fmt.Sprintf("Person detected: %s at %s", s.PersonID, e.locationOf(s.CameraID)),
		},
	}
	e.Instances.Create(alert)
	if e.Dashboard != nil {
		e.Dashboard.PublishAlert("alerts", "triggered", alert)
	}
}

// runConfigurableRules evaluates the broader AlertRule set spec.md §4.6
// describes in general form, applying cooldown and channel dispatch per
// match.
func (e *Evaluator) runConfigurableRules(ctx context.Context, s domain.Sighting) {
	if e.Rules == nil {
		return
	}
	rules, err := e.Rules.ActiveRules(ctx)
	if err != nil {
		log.Printf("[AlertEvaluator] ruleEvaluationError: could not load rules: %v", err)
		return
	}
	now := time.Now()
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if !Matches(rule.Conditions, s.PersonID, s.CameraID, s.Confidence, now) {
			continue
		}
		if !e.Cooldowns.CheckAndSet(rule.ID, s.PersonID, s.CameraID, time.Duration(rule.CooldownMinutes)*time.Minute) {
			continue
		}
		alert := domain.AlertInstance{
			ID:          uuid.NewString(),
			RuleID:      rule.ID,
			PersonID:    s.PersonID,
			CameraID:    s.CameraID,
			SightingID:  s.ID,
			Priority:    rule.Priority,
			Status:      domain.AlertActive,
			TriggeredAt: now,
		}
		if rule.EscalationMinutes != nil {
			deadline := now.Add(time.Duration(*rule.EscalationMinutes) * time.Minute)
			alert.EscalationDeadline = &deadline
		}
		e.Instances.Create(alert)
		if e.Dashboard != nil {
			e.Dashboard.PublishAlert("alerts", "triggered", alert)
		}
		if e.Dispatcher != nil && len(rule.NotificationChannels) > 0 {
			msg := rule.NotificationTemplate
			if msg == "" {
				msg = fmt.Sprintf("Alert %s: person %s at %s", rule.Name, s.PersonID, e.locationOf(s.CameraID))
			}
			e.Dispatcher.Dispatch(ctx, alert, rule.NotificationChannels, msg)
		}
	}
}

// runHighPriorityRule is spec.md §4.6 Rule 2. On priority-API failure it
// degrades gracefully: only the basic alert stands, and the degradation is
// logged, never surfaced as an evaluation failure.
func (e *Evaluator) runHighPriorityRule(ctx context.Context, s domain.Sighting) {
	if e.Priority == nil {
		return
	}
	status, err := e.Priority.CheckHighPriority(ctx, s.PersonID)
	if err != nil {
		log.Printf("[AlertEvaluator] priority API degraded for person=%s: %v — basic alert only", s.PersonID, err)
		return
	}
	if !status.IsHighPriority {
		return
	}

	alert := domain.AlertInstance{
		ID:          uuid.NewString(),
		RuleID:      "high_priority",
		PersonID:    s.PersonID,
		CameraID:    s.CameraID,
		SightingID:  s.ID,
		Priority:    domain.Priority(status.PriorityLevel),
		Status:      domain.AlertActive,
		TriggeredAt: time.Now(),
		TriggerData: map[string]any{"alert_reason": status.AlertReason},
	}
	e.Instances.Create(alert)
	if e.Dashboard != nil {
		e.Dashboard.PublishAlert("alerts", "triggered", alert)
	}

	message := fmt.Sprintf("High-priority person %s detected at %s (%.0f%% confidence): %s",
		s.PersonID, e.locationOf(s.CameraID), s.Confidence*100, status.AlertReason)

	links, err := e.Priority.ContactLinks(ctx, s.PersonID)
	if err != nil {
		log.Printf("[AlertEvaluator] contact link lookup failed for person=%s: %v", s.PersonID, err)
		return
	}
	for _, link := range links {
		contact, err := e.Priority.Contact(ctx, link.ContactID)
		if err != nil {
			log.Printf("[AlertEvaluator] contact lookup failed id=%s: %v", link.ContactID, err)
			continue
		}
		msg := message
		if link.CustomMessageTemplate != "" {
			msg = formatTemplate(link.CustomMessageTemplate, s, e.locationOf(s.CameraID))
		}
		e.dispatchToContact(ctx, alert, contact, link, msg)
	}

	if e.Dispatcher != nil && len(status.EscalationChannels) > 0 {
		e.Dispatcher.Dispatch(ctx, alert, status.EscalationChannels, message)
	}
}

// dispatchToContact honors the per-contact escalation_delay_minutes:
// zero-delay contacts are dispatched immediately, others are scheduled.
func (e *Evaluator) dispatchToContact(ctx context.Context, alert domain.AlertInstance, contact domain.NotificationContact, link domain.HighPriorityContactLink, message string) {
	channelID, ok := e.DefaultChannels[contact.Type]
	if !ok {
		log.Printf("[AlertEvaluator] no channel configured for contact type %s, dropping contact %s", contact.Type, contact.ID)
		return
	}
	if link.EscalationDelayMinutes <= 0 {
		if e.Dispatcher != nil {
			e.Dispatcher.Dispatch(ctx, alert, []string{channelID}, message)
		}
		return
	}
	delay := time.Duration(link.EscalationDelayMinutes) * time.Minute
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if e.Dispatcher != nil {
				e.Dispatcher.Dispatch(context.Background(), alert, []string{channelID}, message)
			}
		case <-ctx.Done():
		}
	}()
}

func formatTemplate(tmpl string, s domain.Sighting, location string) string {
	r := strings.NewReplacer(
		"{person_name}", s.PersonID,
		"{camera_location}", location,
		"{confidence}", fmt.Sprintf("%.0f%%", s.Confidence*100),
		"{timestamp}", s.Timestamp.Format(time.RFC3339),
	)
	return r.Replace(tmpl)
}

// RunEscalationScan advances active alerts whose escalation deadline has
// passed, per spec.md §4.6. The composition root runs this on a
// one-minute ticker.
func (e *Evaluator) RunEscalationScan(ctx context.Context) {
	due := e.Instances.DueForEscalation(time.Now())
	for _, alert := range due {
		if e.Dashboard != nil {
			e.Dashboard.PublishAlert("alerts", "escalated", alert)
		}
		log.Printf("[AlertEvaluator] alert %s escalated from %s after timeout", alert.ID, alert.EscalatedFrom)
	}
}
