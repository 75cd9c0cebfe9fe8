// Package auth implements the session lifecycle: initialization, PIN and
// SSO login, PIN change, logout, forced expiry and the session timer.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/store"
	"github.com/warelink/scangate/internal/telemetry"
)

// BackendClient is the backend surface the auth lifecycle needs.
type BackendClient interface {
	Login(ctx context.Context, username, pin, azureUserName string) (*backend.LoginResponse, error)
	LoginWithoutPin(ctx context.Context, username string) (*backend.LoginResponse, error)
	ChangePin(ctx context.Context, username, pin, newPin string) (*backend.LoginResponse, error)
	Logout(ctx context.Context, username string) error
	GetUserState(ctx context.Context, username string) (*backend.UserState, error)
	GetLocationList(ctx context.Context) ([]backend.Location, error)
	GetPartnerList(ctx context.Context) ([]backend.Partner, error)
}

// Credentials is the keystore surface the auth lifecycle needs.
type Credentials interface {
	Timeout() (bool, error)
	SetTimeout(timedOut bool) error
	Credential() ([]byte, error)
	SetCredential(blob []byte) error
	ClearCredential() error
}

// TokenRevoker revokes an identity provider token on explicit logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// Manager drives the auth state machine.
type Manager struct {
	client    BackendClient
	creds     Credentials
	store     *store.Store
	hub       ports.EventHub
	timer     *SessionTimer
	revoker   TokenRevoker
	telemetry *telemetry.Reporter
}

// NewManager creates an auth manager. revoker may be nil when no identity
// provider is configured.
func NewManager(client BackendClient, creds Credentials, st *store.Store, hub ports.EventHub, revoker TokenRevoker, reporter *telemetry.Reporter) *Manager {
	return &Manager{
		client:    client,
		creds:     creds,
		store:     st,
		hub:       hub,
		timer:     NewSessionTimer(),
		revoker:   revoker,
		telemetry: reporter,
	}
}

// Initialize resolves the startup branch from durable state. A stored
// credential forces the timeout branch regardless of the persisted flag: the
// token is stale by definition and only the PIN screen is safe to show.
func (m *Manager) Initialize(ctx context.Context) {
	timedOut, err := m.creds.Timeout()
	if err != nil {
		log.Warn().Err(err).Msg("reading timeout flag failed, assuming clean start")
	}

	var timeout *bool
	if _, credErr := m.creds.Credential(); credErr == nil {
		flag := true
		timeout = &flag
	} else if timedOut {
		flag := true
		timeout = &flag
	}

	m.store.CompleteInit(timeout)
	m.publishSession()
	log.Info().Bool("timeout_branch", timeout != nil).Msg("session initialized")
}

// LoginWithPIN performs a PIN login.
func (m *Manager) LoginWithPIN(ctx context.Context, userName, pin, azureUserName string) {
	m.setLoading(ctx, true)
	defer m.setLoading(ctx, false)

	m.telemetry.Info("Login with PIN initiated", telemetry.Meta{EventType: "auth", AuthMethod: "pin"})

	resp, err := m.client.Login(ctx, userName, pin, azureUserName)
	if err != nil {
		m.telemetry.Error("Login with PIN exception", err, telemetry.Meta{EventType: "auth", AuthMethod: "pin"})
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	m.handleLoginResponse(ctx, userName, pin, resp, "pin")
}

// LoginWithoutPIN performs an SSO login with the token-derived username.
func (m *Manager) LoginWithoutPIN(ctx context.Context, userName string) {
	m.setLoading(ctx, true)
	defer m.setLoading(ctx, false)

	m.telemetry.Info("Login without PIN initiated", telemetry.Meta{EventType: "auth", AuthMethod: "sso"})

	resp, err := m.client.LoginWithoutPin(ctx, userName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResponse) {
			m.failAuth(ctx, []string{domain.MsgServerError, domain.MsgEmptyAPIResponse})
			return
		}
		m.telemetry.Error("Login without PIN exception", err, telemetry.Meta{EventType: "auth", AuthMethod: "sso"})
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	m.handleLoginResponse(ctx, userName, "", resp, "sso")
}

// CompleteSSOLogin finishes an external SSO flow: derives the username from
// the access token, stores the credential and logs in without a PIN.
func (m *Manager) CompleteSSOLogin(ctx context.Context, accessToken string) {
	username, err := UsernameFromToken(accessToken)
	if err != nil {
		m.telemetry.Error("SSO login failed", err, telemetry.Meta{EventType: "auth", AuthMethod: "sso"})
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}

	if err := m.creds.SetCredential([]byte(accessToken)); err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	m.telemetry.ResetSession()
	m.telemetry.Info("SSO login successful", telemetry.Meta{EventType: "auth", AuthMethod: "sso"})

	m.LoginWithoutPIN(ctx, username)
}

func (m *Manager) handleLoginResponse(ctx context.Context, userName, pin string, resp *backend.LoginResponse, method string) {
	if ctx.Err() != nil {
		return
	}
	result := resp.Result

	switch {
	case result.ErrorText == domain.MsgResetPinSentinel:
		// The backend demands a PIN change before completing login.
		m.telemetry.Info("PIN reset required", telemetry.Meta{EventType: "auth"})
		m.hub.Publish(events.NewNavigateEventWithParam(events.ScreenChangePin, map[string]string{
			"userName": userName,
			"oldPin":   pin,
		}))

	case result.ErrorText != "":
		m.telemetry.Error("Login failed", errors.New(result.ErrorText), telemetry.Meta{EventType: "auth", AuthMethod: method})
		m.failAuth(ctx, []string{result.ErrorText, result.ErrorDetail})

	default:
		m.completeLogin(ctx, resp, method)
	}
}

func (m *Manager) completeLogin(ctx context.Context, resp *backend.LoginResponse, method string) {
	result := resp.Result
	if result.Username == "" {
		m.failAuth(ctx, []string{domain.MsgSessionMissing})
		return
	}

	if err := m.creds.SetTimeout(false); err != nil {
		log.Warn().Err(err).Msg("clearing timeout flag failed")
	}

	username := result.Username
	if result.TimeoutMins > 0 {
		m.timer.Start(time.Duration(result.TimeoutMins)*time.Minute, func() {
			m.onTimerExpire(username)
		})
	}

	m.store.LoginSuccess(username, resp.Buttons, result.CurrentPage)
	m.telemetry.ResetSession()
	m.telemetry.Info("Login successful", telemetry.Meta{EventType: "auth", AuthMethod: method})
	m.publishSession()

	// Post-login fan-out: three independent fetches, no join barrier. Each
	// commits its result when it resolves.
	fanCtx := context.Background()
	go m.RefreshUserState(fanCtx, username)
	go m.refreshLocations(fanCtx)
	go m.refreshPartners(fanCtx)
}

// ChangePin changes the operator's PIN. On success the UI host is sent back
// to the login screen.
func (m *Manager) ChangePin(ctx context.Context, userName, oldPin, newPin string) {
	m.setLoading(ctx, true)
	defer m.setLoading(ctx, false)

	resp, err := m.client.ChangePin(ctx, userName, oldPin, newPin)
	if err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	result := resp.Result
	if result.Info == domain.MsgPinChanged {
		m.store.SetAuthMessage(result.Info)
		m.hub.Publish(events.NewNavigateEvent(events.ScreenLogin))
		m.hub.Publish(events.NewMessageEvent(result.Info))
		return
	}
	m.failAuth(ctx, []string{result.ErrorText, result.ErrorDetail})
}

// Logout performs an explicit logout: revoke the identity token, clear the
// credential, terminate the backend session and reset to the full-login
// branch.
func (m *Manager) Logout(ctx context.Context, username string) {
	m.setLoading(ctx, true)
	defer m.setLoading(ctx, false)

	cred, err := m.creds.Credential()
	if err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}

	if m.revoker != nil {
		if err := m.revoker.Revoke(ctx, string(cred)); err != nil {
			m.failAuth(ctx, domain.FormatUserError(err))
			return
		}
	}

	if err := m.creds.ClearCredential(); err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}

	if err := m.client.Logout(ctx, username); err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	m.timer.Stop()
	if err := m.creds.SetTimeout(false); err != nil {
		log.Warn().Err(err).Msg("clearing timeout flag failed")
	}

	m.store.ClearSession(nil)
	m.telemetry.ResetSession()
	m.publishSession()
	log.Info().Str("username", username).Msg("logged out")
}

// SessionExpire forces the session into the timed-out branch: the backend
// session is terminated, the credential dropped and the durable flag set so
// the next start shows the PIN screen.
func (m *Manager) SessionExpire(ctx context.Context, username string) {
	m.setLoading(ctx, true)
	defer m.setLoading(ctx, false)

	m.timer.Stop()

	if err := m.client.Logout(ctx, username); err != nil {
		m.failAuth(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	if err := m.creds.ClearCredential(); err != nil && !errors.Is(err, domain.ErrNoCredential) {
		log.Warn().Err(err).Msg("clearing credential failed")
	}
	if err := m.creds.SetTimeout(true); err != nil {
		log.Warn().Err(err).Msg("persisting timeout flag failed")
	}

	timedOut := true
	m.store.ClearSession(&timedOut)
	m.telemetry.ResetSession()

	m.hub.Publish(events.NewEvent(events.EventTypeSessionExpired, events.SessionChangedPayload{
		Username: username,
		Timeout:  &timedOut,
	}))
	m.publishSession()
	log.Info().Str("username", username).Msg("session expired")
}

// OnForeground handles a UI host resuming from background. A stored
// credential at that point is stale by definition and forces expiry.
func (m *Manager) OnForeground(ctx context.Context) {
	cred, err := m.creds.Credential()
	if err != nil {
		return
	}

	username := m.store.Auth().Username
	if username == "" {
		if username, err = UsernameFromToken(string(cred)); err != nil {
			log.Warn().Err(err).Msg("stored credential is undecodable, clearing")
			_ = m.creds.ClearCredential()
			return
		}
	}
	m.SessionExpire(ctx, username)
}

// onTimerExpire fires when the server-declared session length elapses.
func (m *Manager) onTimerExpire(username string) {
	if err := m.creds.SetTimeout(true); err != nil {
		log.Warn().Err(err).Msg("persisting timeout flag failed")
	}

	m.store.SetAuthError([]string{domain.MsgSessionExpired, domain.MsgTokenExpired})
	m.hub.Publish(events.NewErrorEvent([]string{domain.MsgSessionExpired, domain.MsgTokenExpired}))

	m.SessionExpire(context.Background(), username)
}

// RefreshUserState fetches the operator context. A 204 reply means the
// backend dropped the session and forces expiry.
func (m *Manager) RefreshUserState(ctx context.Context, username string) {
	state, err := m.client.GetUserState(ctx, username)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			m.SessionExpire(ctx, username)
			return
		}
		m.store.SetScanError([]string{domain.MsgUserStateFailed})
		m.hub.Publish(events.NewErrorEvent([]string{domain.MsgUserStateFailed}))
		return
	}
	m.store.SetUserState(state)
}

func (m *Manager) refreshLocations(ctx context.Context) {
	locations, err := m.client.GetLocationList(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("location list fetch failed")
		return
	}
	m.store.SetLocations(locations)
}

func (m *Manager) refreshPartners(ctx context.Context) {
	partners, err := m.client.GetPartnerList(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("partner list fetch failed")
		return
	}
	m.store.SetPartners(partners)
}

// failAuth records the user-facing message pair. A cancelled context means
// the task was superseded by a newer auth operation; its outcome is dropped
// unseen.
func (m *Manager) failAuth(ctx context.Context, messages []string) {
	if ctx.Err() != nil {
		return
	}
	m.store.SetAuthError(messages)
	m.hub.Publish(events.NewErrorEvent(messages))
}

func (m *Manager) setLoading(ctx context.Context, loading bool) {
	if ctx.Err() != nil {
		return
	}
	m.store.SetAuthLoading(loading)
	m.hub.Publish(events.NewLoadingEvent(loading))
}

func (m *Manager) publishSession() {
	auth := m.store.Auth()
	m.hub.Publish(events.NewSessionChangedEvent(auth.Username, auth.IsAuthenticated, auth.IsInitialized, auth.Timeout))
}

// Stop cancels the session timer. Called on gateway shutdown.
func (m *Manager) Stop() {
	m.timer.Stop()
}
