package event

import (
	"context"
	"log/slog"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/pkg/kafka"
	"github.com/jihadsmadi/kindearth-backend/pkg/logger"
)

// Topic names for published events.
const (
	TopicUserEvents    = "user.events"
	TopicProductEvents = "product.events"
)

// Event type names.
const (
	TypeUserRegistered   = "user.registered"
	TypeUserRoleAssigned = "user.role_assigned"
	TypeProductCreated   = "product.created"
	TypeProductUpdated   = "product.updated"
	TypeProductDeleted   = "product.deleted"
)

const source = "kindearth-backend"

// UserRegistered is the payload for user.registered events.
type UserRegistered struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// UserRoleAssigned is the payload for user.role_assigned events.
type UserRoleAssigned struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	AssignedBy string `json:"assigned_by"`
}

// ProductChanged is the payload for product lifecycle events.
type ProductChanged struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	CategoryID string `json:"category_id"`
	VendorID   string `json:"vendor_id"`
}

// Producer publishes domain events. A nil Producer is safe to use and drops
// all events, which keeps event publishing optional in tests and local runs
// without a broker.
type Producer struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewProducer wraps a Kafka producer with typed publish helpers.
func NewProducer(producer *kafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, logger: logger}
}

// UserRegisteredEvent publishes a user.registered event.
func (p *Producer) UserRegisteredEvent(ctx context.Context, user *domain.User) {
	p.publish(ctx, TopicUserEvents, TypeUserRegistered, user.ID, "user", UserRegistered{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     user.RoleNames(),
	})
}

// RoleAssignedEvent publishes a user.role_assigned event.
func (p *Producer) RoleAssignedEvent(ctx context.Context, userID string, role domain.Role, assignedBy string) {
	p.publish(ctx, TopicUserEvents, TypeUserRoleAssigned, userID, "user", UserRoleAssigned{
		UserID:     userID,
		Role:       string(role),
		AssignedBy: assignedBy,
	})
}

// ProductEvent publishes a product lifecycle event.
func (p *Producer) ProductEvent(ctx context.Context, eventType string, product *domain.Product) {
	p.publish(ctx, TopicProductEvents, eventType, product.ID, "product", ProductChanged{
		ProductID:  product.ID,
		Name:       product.Name,
		Slug:       product.Slug,
		CategoryID: product.CategoryID,
		VendorID:   product.VendorID,
	})
}

// publish builds the envelope and sends it. Publish failures are logged, not
// returned: events are best-effort and must never fail the calling request.
func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) {
	if p == nil || p.producer == nil {
		return
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
