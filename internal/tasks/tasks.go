package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"propflow/api/internal/email"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeEnquiryNotify = "enquiry:notify"
	TypePasswordReset = "auth:password_reset"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// EmailTaskPayload asks for one templated message.
type EmailTaskPayload struct {
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data"`
}

// EnquiryNoticePayload tells an agent about a new enquiry.
type EnquiryNoticePayload struct {
	EnquiryID        string `json:"enquiry_id"`
	AgentEmail       string `json:"agent_email"`
	AgentName        string `json:"agent_name"`
	ListingTitle     string `json:"listing_title"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	Message          string `json:"message"`
	ViewingRequested bool   `json:"viewing_requested"`
	ViewingDate      string `json:"viewing_date,omitempty"`
}

// PasswordResetPayload carries a freshly issued reset token.
type PasswordResetPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue enqueues the application's notification tasks.
type Queue struct {
	client Enqueuer
}

func NewQueue(client Enqueuer) *Queue {
	return &Queue{client: client}
}

func (q *Queue) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	slog.Debug("Task enqueued", "type", taskType, "task_id", info.ID, "queue", info.Queue)
	return nil
}

func (q *Queue) NotifyEnquiry(ctx context.Context, p EnquiryNoticePayload) error {
	return q.enqueue(ctx, TypeEnquiryNotify, p, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
}

func (q *Queue) SendPasswordReset(ctx context.Context, p PasswordResetPayload) error {
	return q.enqueue(ctx, TypePasswordReset, p, asynq.Queue(QueueCritical), asynq.MaxRetry(3))
}

func (q *Queue) SendWelcome(ctx context.Context, to, fullName string) error {
	return q.enqueue(ctx, TypeEmailDelivery, EmailTaskPayload{
		To:         to,
		TemplateID: TemplateWelcome,
		Data:       map[string]any{"FullName": fullName},
	}, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
}

// --- Task Server (Processing tasks) ---

// SetupServer configures an Asynq server and its handler mux. The caller
// runs and shuts down the server.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
			},
			Logger: newAsynqLogger(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				slog.Error("Task failed", "type", task.Type(), "retry", retried, "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeEnquiryNotify, processor.HandleEnquiryNotifyTask)
	mux.HandleFunc(TypePasswordReset, processor.HandlePasswordResetTask)
	return srv, mux
}

// ProcessorConfig is the part of the app config task handlers use.
type ProcessorConfig struct {
	AppName     string
	FromAddress string
	FrontendURL string
}

// TaskProcessor holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         ProcessorConfig
	emailSender email.Sender
}

func NewTaskProcessor(cfg ProcessorConfig, emailSender email.Sender) *TaskProcessor {
	return &TaskProcessor{cfg: cfg, emailSender: emailSender}
}

// --- Task Handlers ---

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	return p.deliver(ctx, payload.To, payload.TemplateID, payload.Data)
}

func (p *TaskProcessor) HandleEnquiryNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload EnquiryNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal enquiry notice payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.AgentEmail == "" {
		return fmt.Errorf("enquiry %s has no agent email: %w", payload.EnquiryID, asynq.SkipRetry)
	}
	return p.deliver(ctx, payload.AgentEmail, TemplateEnquiryNotice, payload)
}

func (p *TaskProcessor) HandlePasswordResetTask(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal password reset payload: %v: %w", err, asynq.SkipRetry)
	}
	return p.deliver(ctx, payload.Email, TemplatePasswordReset, map[string]any{
		"ResetURL": fmt.Sprintf("%s/reset-password?token=%s", p.cfg.FrontendURL, payload.Token),
	})
}

func (p *TaskProcessor) deliver(ctx context.Context, to, templateID string, data any) error {
	tmpl, ok := templates[templateID]
	if !ok {
		return fmt.Errorf("email template %q not found: %w", templateID, asynq.SkipRetry)
	}
	subject, body, err := tmpl.render(p.cfg.AppName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %v: %w", templateID, err, asynq.SkipRetry)
	}
	raw := email.Compose(p.cfg.FromAddress, []string{to}, subject, tmpl.kind, body)
	if err := p.emailSender.Send(ctx, []string{to}, subject, raw); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", templateID, to, err)
	}
	slog.Info("Email task processed", "to", to, "template", templateID)
	return nil
}
