package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/envelope"
	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrVerification wraps signature failures on an incoming callback.
	ErrVerification = errors.New("notify: signature verification failed")
	// ErrInvalidNotification is returned for a body that is not a notification.
	ErrInvalidNotification = errors.New("notify: invalid notification")
	// ErrUnsupportedAlgorithm is returned for resources not sealed with AEAD_AES_256_GCM.
	ErrUnsupportedAlgorithm = errors.New("notify: unsupported resource algorithm")
)

// Verifier checks signature headers against a raw body.
type Verifier interface {
	VerifyResponse(ctx context.Context, header http.Header, body []byte) error
}

// Resource is the encrypted part of a notification.
type Resource struct {
	Algorithm    string `json:"algorithm"`
	OriginalType string `json:"original_type"`
	envelope.SealedEnvelope
}

// Notification is a verified and decrypted callback.
type Notification struct {
	ID           string   `json:"id"`
	CreateTime   string   `json:"create_time"`
	EventType    string   `json:"event_type"`
	ResourceType string   `json:"resource_type"`
	Summary      string   `json:"summary"`
	Resource     Resource `json:"resource"`

	// Plaintext is the decrypted resource. It must never be logged.
	Plaintext []byte `json:"-"`
}

// DecodeResource unmarshals the decrypted resource into v.
func (n *Notification) DecodeResource(v any) error {
	if err := json.Unmarshal(n.Plaintext, v); err != nil {
		return fmt.Errorf("decode resource of %s: %w", n.ID, err)
	}

	return nil
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Parser) { p.logger = log.OrNop(l) }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Parser) { p.tracer = opentelemetry.Tracer(t) }
}

// WithProduction hides error details in logs.
func WithProduction(production bool) Option {
	return func(p *Parser) { p.production = production }
}

// Parser verifies and decrypts notifications.
type Parser struct {
	verifier   Verifier
	apiV3Key   []byte
	logger     log.Logger
	tracer     trace.Tracer
	production bool
}

// NewParser returns a Parser. apiV3Key must be 32 bytes.
func NewParser(verifier Verifier, apiV3Key []byte, opts ...Option) (*Parser, error) {
	if verifier == nil {
		return nil, errors.New("notify: nil verifier")
	}

	if len(apiV3Key) != envelope.KeySize {
		return nil, fmt.Errorf("apiv3 key must be %d bytes: %w", envelope.KeySize, envelope.ErrKeyLoad)
	}

	p := &Parser{
		verifier: verifier,
		apiV3Key: append([]byte(nil), apiV3Key...),
		logger:   &log.NopLogger{},
		tracer:   opentelemetry.Tracer(nil),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Parse verifies the signature of body, then decodes and decrypts it.
func (p *Parser) Parse(ctx context.Context, header http.Header, body []byte) (*Notification, error) {
	ctx, span := p.tracer.Start(ctx, "payscore.notify.parse")
	defer span.End()

	if err := p.verifier.VerifyResponse(ctx, header, body); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrVerification, err)
		opentelemetry.HandleSpanError(span, "notification signature rejected", wrapped)

		p.logger.Log(ctx, log.LevelWarn, "notification signature rejected",
			log.SerialNo(header.Get(payscore.HeaderSerial)), log.Err(err))

		return nil, wrapped
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidNotification, err)
		opentelemetry.HandleSpanError(span, "notification is not valid JSON", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String("payscore.notify.id", n.ID),
		attribute.String("payscore.notify.event_type", n.EventType),
	)

	if n.Resource.Algorithm != payscore.AlgorithmAEADAES256GCM {
		err := fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, n.Resource.Algorithm)
		opentelemetry.HandleSpanError(span, "notification resource rejected", err)

		return nil, err
	}

	plaintext, err := n.Resource.Open(p.apiV3Key)
	if err != nil {
		opentelemetry.HandleSpanError(span, "notification resource could not be decrypted", err)
		log.SafeError(p.logger, ctx, "notification resource could not be decrypted", err, p.production)

		return nil, fmt.Errorf("notification %s: %w", n.ID, err)
	}

	n.Plaintext = plaintext

	p.logger.Log(ctx, log.LevelInfo, "notification received",
		log.NotifyID(n.ID), log.String("event_type", n.EventType))

	return &n, nil
}
