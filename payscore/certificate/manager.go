package certificate

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/envelope"
	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/LerianStudio/lib-payscore/payscore/signstring"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListPath is the gateway endpoint returning the encrypted platform certificates.
const ListPath = "/v3/certificates"

const defaultMinRefreshInterval = time.Minute

var (
	// ErrNotFound is returned when no valid certificate matches a serial.
	ErrNotFound = errors.New("certificate: not found")
	// ErrSignatureMismatch is returned when a signature does not verify.
	ErrSignatureMismatch = errors.New("certificate: signature mismatch")
	// ErrMissingHeaders is returned when a signed message lacks signature headers.
	ErrMissingHeaders = errors.New("certificate: missing signature headers")
	// ErrInvalidList is returned for a malformed certificate list.
	ErrInvalidList = errors.New("certificate: invalid certificate list")
)

// Fetcher performs a signed GET without verifying the response, since the
// certificates needed for verification are inside that response.
type Fetcher interface {
	GetUnverified(ctx context.Context, path string) ([]byte, http.Header, error)
}

// Store resolves a certificate by serial number.
type Store interface {
	Get(ctx context.Context, serial string) (*x509.Certificate, error)
}

type encryptedCertificate struct {
	Algorithm string `json:"algorithm"`
	envelope.SealedEnvelope
}

type listItem struct {
	SerialNo           string               `json:"serial_no"`
	EffectiveTime      string               `json:"effective_time"`
	ExpireTime         string               `json:"expire_time"`
	EncryptCertificate encryptedCertificate `json:"encrypt_certificate"`
}

type listResponse struct {
	Data []listItem `json:"data"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache replaces the default MemoryCache.
func WithCache(c Cache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.logger = log.OrNop(l) }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = opentelemetry.Tracer(t) }
}

// Locker serializes certificate downloads across instances.
// *redis.LockManager satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// RefreshLockKey is the lock held while the certificate list is downloaded.
const RefreshLockKey = "payscore:lock:cert-refresh"

// WithLocker makes refreshes take a distributed lock so a fleet does not
// download the list concurrently.
func WithLocker(l Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithMinRefreshInterval bounds how often unknown serials may trigger a download.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(m *Manager) { m.minRefresh = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager downloads, decrypts, caches and serves platform certificates.
type Manager struct {
	fetcher    Fetcher
	apiV3Key   []byte
	cache      Cache
	locker     Locker
	logger     log.Logger
	tracer     trace.Tracer
	now        func() time.Time
	minRefresh time.Duration

	mu          sync.RWMutex
	index       map[string]*x509.Certificate
	refreshMu   sync.Mutex
	lastRefresh time.Time
}

// NewManager returns a Manager. Nothing is downloaded until first use.
func NewManager(fetcher Fetcher, apiV3Key []byte, opts ...Option) (*Manager, error) {
	if fetcher == nil {
		return nil, errors.New("certificate: nil fetcher")
	}

	if len(apiV3Key) != envelope.KeySize {
		return nil, fmt.Errorf("apiv3 key must be %d bytes: %w", envelope.KeySize, envelope.ErrKeyLoad)
	}

	m := &Manager{
		fetcher:    fetcher,
		apiV3Key:   append([]byte(nil), apiV3Key...),
		cache:      NewMemoryCache(),
		logger:     &log.NopLogger{},
		tracer:     opentelemetry.Tracer(nil),
		now:        time.Now,
		minRefresh: defaultMinRefreshInterval,
		index:      make(map[string]*x509.Certificate),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Get returns the certificate with the given serial, consulting the cache and
// then downloading the list once if it is still unknown.
func (m *Manager) Get(ctx context.Context, serial string) (*x509.Certificate, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))

	if cert := m.lookup(serial); cert != nil {
		return cert, nil
	}

	if cert, err := m.loadCached(ctx, serial); err == nil {
		return cert, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	if cert := m.lookup(serial); cert != nil {
		return cert, nil
	}

	if !m.lastRefresh.IsZero() && m.now().Sub(m.lastRefresh) < m.minRefresh {
		return nil, fmt.Errorf("serial %s: %w", serial, ErrNotFound)
	}

	if err := m.refreshLocked(ctx); err != nil {
		return nil, err
	}

	if cert := m.lookup(serial); cert != nil {
		return cert, nil
	}

	return nil, fmt.Errorf("serial %s: %w", serial, ErrNotFound)
}

// Newest returns the valid certificate that expires last, downloading the
// list when nothing is known yet.
func (m *Manager) Newest(ctx context.Context) (*x509.Certificate, error) {
	if cert := m.newest(); cert != nil {
		return cert, nil
	}

	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}

	if cert := m.newest(); cert != nil {
		return cert, nil
	}

	return nil, ErrNotFound
}

// Certificates returns the known certificates ordered by expiry, latest
// first. Expired ones are included.
func (m *Manager) Certificates() []*x509.Certificate {
	m.mu.RLock()
	out := make([]*x509.Certificate, 0, len(m.index))

	for _, cert := range m.index {
		out = append(out, cert)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].NotAfter.After(out[j].NotAfter) })

	return out
}

// Refresh downloads and installs the current certificate list.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	return m.refreshLocked(ctx)
}

// Verify checks an RSA signature made with the certificate named by serial.
func (m *Manager) Verify(ctx context.Context, serial, message, signatureB64 string) error {
	cert, err := m.Get(ctx, serial)
	if err != nil {
		return err
	}

	pub, err := signature.ExtractPublicKey(cert)
	if err != nil {
		return err
	}

	if !signature.VerifyRSA(pub, signatureB64, message) {
		return fmt.Errorf("serial %s: %w", serial, ErrSignatureMismatch)
	}

	return nil
}

// VerifyResponse rebuilds the response sign-string from the signature headers
// and the raw body and verifies it.
func (m *Manager) VerifyResponse(ctx context.Context, header http.Header, body []byte) error {
	ts, nonce, sig, serial, err := signatureHeaders(header)
	if err != nil {
		return err
	}

	return m.Verify(ctx, serial, signstring.BuildResponse(ts, nonce, string(body)), sig)
}

func signatureHeaders(header http.Header) (ts, nonce, sig, serial string, err error) {
	ts = header.Get(payscore.HeaderTimestamp)
	nonce = header.Get(payscore.HeaderNonce)
	sig = header.Get(payscore.HeaderSignature)
	serial = header.Get(payscore.HeaderSerial)

	if ts == "" || nonce == "" || sig == "" || serial == "" {
		return "", "", "", "", ErrMissingHeaders
	}

	return ts, nonce, sig, serial, nil
}

func (m *Manager) lookup(serial string) *x509.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cert, ok := m.index[serial]
	if !ok || !m.valid(cert) {
		return nil
	}

	return cert
}

func (m *Manager) newest() *x509.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *x509.Certificate

	for _, cert := range m.index {
		if !m.valid(cert) {
			continue
		}

		if best == nil || cert.NotAfter.After(best.NotAfter) {
			best = cert
		}
	}

	return best
}

func (m *Manager) valid(cert *x509.Certificate) bool {
	now := m.now()

	return !now.Before(cert.NotBefore) && now.Before(cert.NotAfter)
}

func (m *Manager) loadCached(ctx context.Context, serial string) (*x509.Certificate, error) {
	data, err := m.cache.Load(ctx, serial)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.Log(ctx, log.LevelWarn, "certificate cache load failed", log.SerialNo(serial), log.Err(err))
		}

		return nil, err
	}

	cert, err := signature.ParseCertificate(data)
	if err != nil {
		return nil, err
	}

	if !m.valid(cert) || signature.SerialNumber(cert) != serial {
		return nil, ErrCacheMiss
	}

	m.mu.Lock()
	m.index[serial] = cert
	m.mu.Unlock()

	return cert, nil
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "payscore.certificate.refresh")
	defer span.End()

	m.lastRefresh = m.now()

	if m.locker == nil {
		return m.download(ctx, span)
	}

	return m.locker.WithLock(ctx, RefreshLockKey, func(ctx context.Context) error {
		return m.download(ctx, span)
	})
}

func (m *Manager) download(ctx context.Context, span trace.Span) error {
	body, header, err := m.fetcher.GetUnverified(ctx, ListPath)
	if err != nil {
		opentelemetry.HandleSpanError(span, "failed to download certificates", err)

		return fmt.Errorf("download certificates: %w", err)
	}

	certs, pems, err := m.decodeList(body)
	if err != nil {
		opentelemetry.HandleSpanError(span, "failed to decode certificates", err)

		return err
	}

	if err := verifyList(certs, header, body); err != nil {
		opentelemetry.HandleSpanError(span, "certificate list signature rejected", err)
		m.logger.Log(ctx, log.LevelError, "certificate list signature rejected",
			log.SerialNo(header.Get(payscore.HeaderSerial)), log.Err(err))

		return err
	}

	m.mu.Lock()
	for serial, cert := range certs {
		m.index[serial] = cert
	}
	m.mu.Unlock()

	for serial, cert := range certs {
		if err := m.cache.Store(ctx, serial, pems[serial], cert.NotAfter.Sub(m.now())); err != nil {
			m.logger.Log(ctx, log.LevelWarn, "certificate cache store failed", log.SerialNo(serial), log.Err(err))
		}
	}

	span.SetAttributes(attribute.Int("payscore.certificate.count", len(certs)))
	m.logger.Log(ctx, log.LevelInfo, "platform certificates refreshed", log.Int("count", len(certs)))

	return nil
}

func (m *Manager) decodeList(body []byte) (map[string]*x509.Certificate, map[string][]byte, error) {
	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidList, err)
	}

	if len(list.Data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty", ErrInvalidList)
	}

	certs := make(map[string]*x509.Certificate, len(list.Data))
	pems := make(map[string][]byte, len(list.Data))

	for _, item := range list.Data {
		enc := item.EncryptCertificate
		if enc.Algorithm != payscore.AlgorithmAEADAES256GCM {
			return nil, nil, fmt.Errorf("%w: serial %s uses algorithm %q", ErrInvalidList, item.SerialNo, enc.Algorithm)
		}

		plaintext, err := enc.Open(m.apiV3Key)
		if err != nil {
			return nil, nil, fmt.Errorf("decrypt certificate %s: %w", item.SerialNo, err)
		}

		cert, err := signature.ParseCertificate(plaintext)
		if err != nil {
			return nil, nil, fmt.Errorf("certificate %s: %w", item.SerialNo, err)
		}

		serial := signature.SerialNumber(cert)
		if !strings.EqualFold(serial, item.SerialNo) {
			return nil, nil, fmt.Errorf("%w: listed serial %s does not match certificate serial %s", ErrInvalidList, item.SerialNo, serial)
		}

		certs[serial] = cert
		pems[serial] = plaintext
	}

	return certs, pems, nil
}

// verifyList checks the list response against a certificate it contains.
func verifyList(certs map[string]*x509.Certificate, header http.Header, body []byte) error {
	ts, nonce, sig, serial, err := signatureHeaders(header)
	if err != nil {
		return err
	}

	cert, ok := certs[strings.ToUpper(serial)]
	if !ok {
		return fmt.Errorf("signing serial %s not in list: %w", serial, ErrNotFound)
	}

	pub, err := signature.ExtractPublicKey(cert)
	if err != nil {
		return err
	}

	if !signature.VerifyRSA(pub, sig, signstring.BuildResponse(ts, nonce, string(body))) {
		return fmt.Errorf("serial %s: %w", serial, ErrSignatureMismatch)
	}

	return nil
}
