package whatsapp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	qrCode "github.com/skip2/go-qrcode"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/banmd/go-whatsapp-bot/pkg/env"
	"github.com/banmd/go-whatsapp-bot/pkg/log"
)

// State is the connection lifecycle of the single WhatsApp session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateQRPending
	StateOpen
	StateClosedPermanent
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateQRPending:
		return "qr_pending"
	case StateOpen:
		return "open"
	case StateClosedPermanent:
		return "closed_permanent"
	default:
		return "unknown"
	}
}

// ReconnectPolicy controls how the session reacts to transient close events.
// Exactly one reconnect attempt is scheduled per close event. MaxAttempts 0
// retries forever; a positive value transitions the session to
// closed_permanent once exceeded. The attempt counter resets on every
// successful connection.
type ReconnectPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// Config carries the session-level knobs read once at startup.
type Config struct {
	QRValidity     time.Duration
	WelcomeMessage string
	Reconnect      ReconnectPolicy
}

var (
	ErrQRNotAvailable = errors.New("no login QR code is available")
	ErrQRExpired      = errors.New("login QR code has expired")
	ErrNotLoggedIn    = errors.New("WhatsApp session is not logged in")
	ErrNotConnected   = errors.New("WhatsApp session is not connected")
	ErrSessionClosed  = errors.New("WhatsApp session is permanently closed, delete the session datastore and restart to relink")
)

const pairPhoneRequestTimeout = 90 * time.Second
const logoutRequestTimeout = 30 * time.Second

// MessageHandler receives every inbound message event in arrival order.
type MessageHandler func(evt *events.Message)

// Session owns the single whatsmeow client and its lifecycle. It is
// constructed once at startup and injected everywhere a handler or
// controller needs it.
type Session struct {
	client *whatsmeow.Client
	cfg    Config

	state     atomic.Int32
	attempts  atomic.Int32
	startedAt time.Time

	qrMu    sync.Mutex
	qrCodes []string
	qrAt    time.Time

	onMessage   atomic.Value // MessageHandler
	welcomeOnce sync.Once

	httpClient *http.Client
	fetchGroup singleflight.Group

	// replaced in tests
	afterFunc func(d time.Duration, f func())
	connectFn func() error
}

// OpenDatastore opens the whatsmeow credential store. Driver and DSN come
// from WHATSAPP_DATASTORE_TYPE / WHATSAPP_DATASTORE_URI, defaulting to a
// sqlite file under the configured session directory.
func OpenDatastore(ctx context.Context) (*sqlstore.Container, error) {
	driver := normalizeDatastoreDriver(env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite"))

	sessionDir := env.GetEnvStringOrDefault("WHATSAPP_SESSION_DIR", "./sessions")
	defaultDSN := "file:" + sessionDir + "/whatsapp.db?_pragma=foreign_keys(1)"
	dsn := normalizeDatastoreDSN(driver, env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", defaultDSN))

	log.Session().Info("Initializing WhatsApp datastore with driver=" + driver)

	container, err := sqlstore.New(ctx, driver, dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize datastore: %w", err)
	}

	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade datastore schema: %w", err)
	}

	return container, nil
}

func normalizeDatastoreDriver(driver string) string {
	switch driver {
	case "postgresql", "postgres", "pgx":
		return "pgx"
	case "sqlite3":
		return "sqlite"
	default:
		return driver
	}
}

func normalizeDatastoreDSN(driver string, dsn string) string {
	if driver != "pgx" {
		return dsn
	}
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			separator = "&"
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "prefer_simple_protocol", "true")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}

// NewSession builds the session around the stored device (or a fresh one
// when none exists yet) and wires the lifecycle event handler.
func NewSession(ctx context.Context, container *sqlstore.Container, cfg Config) (*Session, error) {
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, err
	}
	if device == nil {
		device = container.NewDevice()
	}

	if cfg.QRValidity <= 0 {
		cfg.QRValidity = 20 * time.Second
	}
	if cfg.Reconnect.Delay <= 0 {
		cfg.Reconnect.Delay = 3 * time.Second
	}

	store.DeviceProps.Os = proto.String(runtime.GOOS)

	s := &Session{
		cfg:        cfg,
		startedAt:  time.Now(),
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
	s.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }

	client := whatsmeow.NewClient(device, nil)
	// Reconnects are driven by this session, not by the library.
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true
	client.AddEventHandler(s.handleEvent)

	if proxyURL := env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""); proxyURL != "" {
		client.SetProxyAddress(proxyURL)
	}

	s.client = client
	s.connectFn = client.Connect
	return s, nil
}

// OnMessage registers the inbound message handler. Last registration wins,
// matching the command registry's overwrite semantics.
func (s *Session) OnMessage(handler MessageHandler) {
	s.onMessage.Store(handler)
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		log.Session().Info("Connection state: " + prev.String() + " -> " + next.String())
	}
}

// Connect starts the session. When no credentials are stored yet the library
// emits QR events which are cached for the /qr endpoint.
func (s *Session) Connect() error {
	if s.State() == StateClosedPermanent {
		return ErrSessionClosed
	}
	s.setState(StateConnecting)
	return s.connectFn()
}

func (s *Session) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.QR:
		if len(e.Codes) > 0 {
			s.storeQR(e.Codes)
		}
		s.setState(StateQRPending)
	case *events.PairSuccess:
		log.Session().Info("Paired with " + maskJIDForLog(e.ID.User))
	case *events.Connected:
		s.attempts.Store(0)
		s.clearQR()
		s.setState(StateOpen)
		s.sendWelcome()
	case *events.LoggedOut:
		log.Session().Warn(fmt.Sprintf("Logged out by remote, reason=%s", e.Reason))
		s.setState(StateClosedPermanent)
	case *events.StreamReplaced:
		log.Session().Warn("Stream replaced by another device, stopping")
		s.setState(StateClosedPermanent)
	case *events.ClientOutdated:
		log.Session().Error("Client version is outdated, stopping")
		s.setState(StateClosedPermanent)
	case *events.TemporaryBan:
		log.Session().Error(fmt.Sprintf("Temporarily banned, reason=%s, expires=%s, stopping", e.Code, e.Expire))
		s.setState(StateClosedPermanent)
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			log.Session().Warn(fmt.Sprintf("Connect failure with logged-out reason=%s, stopping", e.Reason))
			s.setState(StateClosedPermanent)
			return
		}
		log.Session().Error(fmt.Sprintf("Connect failure, reason=%s, message=%s", e.Reason, e.Message))
		s.scheduleReconnect()
	case *events.Disconnected:
		if s.State() == StateClosedPermanent {
			return
		}
		log.Session().Warn("Session disconnected")
		s.scheduleReconnect()
	case *events.KeepAliveTimeout:
		log.Session().Warn(fmt.Sprintf("Keepalive timeout, errors=%d", e.ErrorCount))
	case *events.Message:
		if handler, ok := s.onMessage.Load().(MessageHandler); ok && handler != nil {
			handler(e)
		}
	}
}

// scheduleReconnect arms exactly one delayed reconnect attempt. A failed
// attempt schedules the next one itself, so persistent outages retry on a
// fixed cadence until MaxAttempts (when set) runs out.
func (s *Session) scheduleReconnect() {
	attempt := int(s.attempts.Add(1))
	if s.cfg.Reconnect.MaxAttempts > 0 && attempt > s.cfg.Reconnect.MaxAttempts {
		log.Session().Error(fmt.Sprintf("Giving up after %d reconnect attempts", attempt-1))
		s.setState(StateClosedPermanent)
		return
	}

	s.setState(StateConnecting)
	s.afterFunc(s.cfg.Reconnect.Delay, func() {
		if s.State() == StateClosedPermanent {
			return
		}
		if err := s.connectFn(); err != nil {
			log.Session().Warn(fmt.Sprintf("Reconnect attempt %d failed: %v", attempt, err))
			s.scheduleReconnect()
		}
	})
}

func (s *Session) sendWelcome() {
	if s.cfg.WelcomeMessage == "" || s.client == nil || s.client.Store.ID == nil {
		return
	}
	s.welcomeOnce.Do(func() {
		own := s.client.Store.ID.ToNonAD()
		if err := s.SendText(context.Background(), own, s.cfg.WelcomeMessage); err != nil {
			log.Session().WithError(err).Warn("Failed to send welcome message")
		}
	})
}

func (s *Session) storeQR(codes []string) {
	s.qrMu.Lock()
	s.qrCodes = append([]string(nil), codes...)
	s.qrAt = time.Now()
	s.qrMu.Unlock()
	log.Session().Info(fmt.Sprintf("Cached %d login QR codes", len(codes)))
}

func (s *Session) clearQR() {
	s.qrMu.Lock()
	s.qrCodes = nil
	s.qrAt = time.Time{}
	s.qrMu.Unlock()
}

// QRCode returns the current login code as a base64 PNG data URL. The
// library delivers a batch of codes per QR event; each one is valid for one
// validity window in turn, so the served code rotates to the next entry as
// the previous window lapses. Only after the whole batch is spent does the
// endpoint report expiry, until the next connect cycle delivers fresh codes.
func (s *Session) QRCode() (string, error) {
	s.qrMu.Lock()
	codes := s.qrCodes
	at := s.qrAt
	s.qrMu.Unlock()

	if len(codes) == 0 {
		return "", ErrQRNotAvailable
	}
	index := int(time.Since(at) / s.cfg.QRValidity)
	if index < 0 || index >= len(codes) {
		return "", ErrQRExpired
	}

	qrPNG, err := qrCode.Encode(codes[index], qrCode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG), nil
}

// PairPhone requests an out-of-band pairing code for the given E.164 phone
// number. The session must be connected but not yet logged in.
func (s *Session) PairPhone(ctx context.Context, phone string) (string, error) {
	if s.client.Store.ID != nil {
		return "", errors.New("WhatsApp session is already paired")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, pairPhoneRequestTimeout)
	defer cancel()

	if !s.client.IsConnected() {
		if err := s.Connect(); err != nil {
			return "", err
		}
	}

	return s.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
}

// Logout clears the persisted credentials and permanently closes the
// session. The process must be restarted to relink.
func (s *Session) Logout(ctx context.Context) error {
	if s.client.Store.ID == nil {
		return ErrNotLoggedIn
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.setState(StateClosedPermanent)

	logoutCtx, cancel := context.WithTimeout(ctx, logoutRequestTimeout)
	defer cancel()

	if err := s.client.Logout(logoutCtx); err != nil {
		s.client.Disconnect()
		if delErr := s.client.Store.Delete(logoutCtx); delErr != nil {
			return delErr
		}
	}
	return nil
}

// Disconnect tears the socket down without touching stored credentials.
func (s *Session) Disconnect() {
	s.setState(StateClosedPermanent)
	s.client.Disconnect()
}

// IsHealthy reports whether the session is connected and logged in.
func (s *Session) IsHealthy() error {
	if !s.client.IsConnected() {
		return ErrNotConnected
	}
	if !s.client.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *Session) IsLoggedIn() bool {
	return s.client != nil && s.client.IsLoggedIn()
}

func (s *Session) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}

// OwnJID returns the bot's own user JID, or the empty JID before login.
func (s *Session) OwnJID() types.JID {
	if s.client == nil || s.client.Store.ID == nil {
		return types.EmptyJID
	}
	return s.client.Store.ID.ToNonAD()
}

func (s *Session) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Presence publishes availability, used by the always-online routine.
func (s *Session) Presence(ctx context.Context, available bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.IsHealthy() != nil {
		return
	}
	presence := types.PresenceUnavailable
	if available {
		presence = types.PresenceAvailable
	}
	_ = s.client.SendPresence(ctx, presence)
}

func maskJIDForLog(jid string) string {
	if len(jid) < 4 {
		return jid
	}
	return jid[0:len(jid)-4] + "xxxx"
}
