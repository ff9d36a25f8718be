// Package domain holds the shared data model for the FaceGuard event
// pipeline: cameras, frames, detections, sightings, alert rules and
// instances, notification contacts/channels and delivery records. Every
// other internal package imports these types rather than defining its own.
package domain

import "time"

type CameraStatus string

const (
	CameraDisconnected CameraStatus = "disconnected"
	CameraConnecting   CameraStatus = "connecting"
	CameraConnected    CameraStatus = "connected"
	CameraError        CameraStatus = "error"
	CameraInactive     CameraStatus = "inactive"
)

type StreamState string

const (
	StreamActive  StreamState = "active"
	StreamPaused  StreamState = "paused"
	StreamStopped StreamState = "stopped"
	StreamError   StreamState = "error"
)

// ReconnectPolicy bounds how a stream loop retries a failed capture handle.
type ReconnectPolicy struct {
	MaxAttempts int
	DelaySecs   int
}

// Camera is the unit the Orchestrator owns exclusively; its mutable runtime
// fields are only ever touched by the stream loop that owns it or, for
// status/error reporting, by the health monitor scan.
type Camera struct {
	ID          string
	Name        string
	Location    string
	SourceURI   string
	Width       int
	Height      int
	FrameRate   int
	Reconnect   ReconnectPolicy
	Enabled     bool

	Status           CameraStatus
	StreamState      StreamState
	FramesProcessed  int64
	ErrorCount       int64
	LastError        string
	LastFrameTime    time.Time
	ReconnectAttempt int
	CreatedAt        time.Time
}

type QualityGrade string

const (
	GradeExcellent QualityGrade = "excellent"
	GradeGood      QualityGrade = "good"
	GradeFair      QualityGrade = "fair"
	GradePoor      QualityGrade = "poor"
	GradeUnusable  QualityGrade = "unusable"
)

// Frame is a short-lived value owned by the stream loop until it is either
// enqueued downstream or dropped on a failed quality gate.
type Frame struct {
	ID        string
	CameraID  string
	Timestamp time.Time
	Number    int64
	Width     int
	Height    int
	Channels  int
	ByteSize  int
	Data      []byte

	Quality *QualityResult
}

// QualityResult is the scored outcome of internal/frames' quality gate,
// carrying the supplemented issue/recommendation list alongside the
// numeric score spec.md names.
type QualityResult struct {
	Score           float64
	Grade           QualityGrade
	Sharpness       float64
	Brightness      float64
	Contrast        float64
	Issues          []string
	Recommendations []string
}

// BoundingBox uses float corners so downstream crop logic can clamp against
// frame bounds without truncating twice.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

type FaceAttributes struct {
	Age    int
	Gender string
}

// FaceDetection is one face found in a single recognition call. MatchedPersonID
// is empty when recognition confidence falls below the caller's threshold.
type FaceDetection struct {
	BBox                 BoundingBox
	DetectionConfidence  float64
	Embedding            []float32
	Attributes           *FaceAttributes
	RecognitionConfidence float64
	MatchedPersonID      string
}

// PersonEmbedding is a single enrolled vector for a person in the vector
// index. ConfidenceScore is the training-time confidence recorded when the
// embedding was enrolled — distinct from a FaceDetection's per-frame
// RecognitionConfidence (see DESIGN.md Open Question 1).
type PersonEmbedding struct {
	ID              string
	PersonID        string
	Vector          []float32
	QualityScore    float64
	ConfidenceScore float64
	ModelName       string
	ModelVersion    string
}

type SightingSource string

const (
	SourceCameraStream SightingSource = "camera_stream"
	SourceImageUpload  SightingSource = "image_upload"
	SourceVideoUpload  SightingSource = "video_upload"
)

// Sighting is exclusively owned by the Sighting Queue until it is persisted
// to the external data service, after which downstream components refer to
// it by id only.
type Sighting struct {
	ID           string
	PersonID     string
	CameraID     string
	Confidence   float64
	Timestamp    time.Time
	BBox         BoundingBox
	CropJPEG     []byte
	QualityScore float64
	Source       SightingSource
	FrameID      string
	FrameNumber  int64
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TriggerConditions is the conjunction of optional match predicates spec.md
// §9 models as tagged variants; a nil/empty field means "unconstrained",
// except AnyPerson which short-circuits a match when true.
type TriggerConditions struct {
	PersonIDs       map[string]bool
	ExcludedPersons map[string]bool
	CameraIDs       map[string]bool
	ConfidenceMin   *float64
	ConfidenceMax   *float64
	TimeRanges      []TimeRange
	Departments     map[string]bool
	MinAccessLevel  *int
	AnyPerson       bool
}

// TimeRange is an inclusive hour-of-day window, e.g. {StartHour:9, EndHour:17}.
type TimeRange struct {
	StartHour int
	EndHour   int
}

type AlertRule struct {
	ID                   string
	Name                 string
	Priority             Priority
	Conditions           TriggerConditions
	CooldownMinutes      int
	EscalationMinutes    *int
	AutoResolveMinutes   *int
	NotificationChannels []string
	NotificationTemplate string
	IsActive             bool
}

type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertEscalated    AlertStatus = "escalated"
)

type AlertInstance struct {
	ID             string
	RuleID         string
	PersonID       string
	CameraID       string
	SightingID     string
	Priority       Priority
	Status         AlertStatus
	TriggerData    map[string]any
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	AcknowledgedBy string
	ResolvedAt     *time.Time
	ResolvedBy     string
	EscalatedAt    *time.Time
	EscalatedFrom  Priority
	EscalationCount int
	NotificationCount int
	EscalationDeadline *time.Time
}

type HighPriorityLevel string

const (
	HighPriorityHigh     HighPriorityLevel = "high"
	HighPriorityCritical HighPriorityLevel = "critical"
	HighPriorityWanted   HighPriorityLevel = "wanted"
)

type NotificationFrequency string

const (
	FrequencyImmediate NotificationFrequency = "immediate"
	FrequencyDaily     NotificationFrequency = "daily"
	FrequencyWeekly    NotificationFrequency = "weekly"
)

type HighPriorityPerson struct {
	PersonID             string
	PriorityLevel        HighPriorityLevel
	AlertReason          string
	EscalationChannels   []string
	NotificationFrequency NotificationFrequency
	IsActive             bool
}

// HighPriorityContactLink is the many-to-many join row between a
// HighPriorityPerson and a NotificationContact (see DESIGN.md Open
// Question 3).
type HighPriorityContactLink struct {
	PersonID               string
	ContactID              string
	EscalationDelayMinutes int
	PriorityOverride       Priority
	CustomMessageTemplate  string
}

type ContactType string

const (
	ContactEmail   ContactType = "email"
	ContactPhone   ContactType = "phone"
	ContactWebhook ContactType = "webhook"
)

type NotificationContact struct {
	ID            string
	Type          ContactType
	Value         string
	Verified      bool
	Priority      int
	AllowedHours  []TimeRange
	AllowedDays   map[time.Weekday]bool
	MaxPerHour    int
	Active        bool
	PersonID      string
}

type ChannelType string

const (
	ChannelEmail     ChannelType = "email"
	ChannelSMS       ChannelType = "sms"
	ChannelWebhook   ChannelType = "webhook"
	ChannelWebSocket ChannelType = "websocket"
)

// ChannelConfig is the tagged-union channel configuration spec.md §9
// describes; only the field matching Type is populated.
type ChannelConfig struct {
	Email     *EmailConfig
	SMS       *SMSConfig
	Webhook   *WebhookConfig
	WebSocket *WebSocketConfig
}

type EmailConfig struct {
	Host     string
	Port     int
	TLS      bool
	User     string
	Pass     string
	From     string
}

type SMSConfig struct {
	ProviderURL string
	AccountSID  string
	AuthToken   string
	From        string
}

type WebhookConfig struct {
	URL     string
	Secret  string
	Headers map[string]string
}

type WebSocketConfig struct {
	Room string
}

type NotificationChannel struct {
	ID                string
	Name              string
	Type              ChannelType
	Config            ChannelConfig
	RateLimitPerMin   int
	RetryAttempts     int
	TimeoutSeconds    int
	IsActive          bool
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryBounced   DeliveryStatus = "bounced"
)

type DeliveryRecord struct {
	ID          string
	AlertID     string
	ChannelID   string
	Status      DeliveryStatus
	RetryCount  int
	ErrorMsg    string
	ExternalID  string
	CreatedAt   time.Time
	SentAt      *time.Time
	DeliveredAt *time.Time
	Metadata    map[string]any
}

// RecognitionEvent is the pub/sub payload C7 publishes per spec.md §4.8 /
// the wire-format table in §6.
type RecognitionEvent struct {
	EventID               string         `json:"event_id"`
	EventType             string         `json:"event_type"`
	ServiceVersion        string         `json:"service_version"`
	Timestamp             time.Time      `json:"timestamp"`
	CameraID              string         `json:"camera_id"`
	FrameID                string        `json:"frame_id"`
	PersonsDetected       []DetectedPerson `json:"persons_detected"`
	ProcessingTimeMs      float64        `json:"processing_time_ms"`
	ConfidenceThreshold   float64        `json:"confidence_threshold"`
	FrameMetadata         FrameMetadata  `json:"frame_metadata"`
	RecognitionSuccessful bool           `json:"recognition_successful"`
}

type DetectedPerson struct {
	PersonID              string  `json:"person_id,omitempty"`
	BBox                  [4]float64 `json:"bbox"`
	DetectionConfidence   float64 `json:"detection_confidence"`
	RecognitionConfidence float64 `json:"recognition_confidence"`
}

type FrameMetadata struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	QualityScore float64 `json:"quality_score"`
	FrameNumber  int64   `json:"frame_number"`
	FileSize     int     `json:"file_size"`
}
