package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/pkg/config"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

var ErrDirectoryUnavailable = errors.New("user directory unavailable")

// GoCloakClient is the subset of the gocloak client used for lookups.
type GoCloakClient interface {
	LoginClient(ctx context.Context, clientID, clientSecret, realm string, scopes ...string) (*gocloak.JWT, error)
	GetUserByID(ctx context.Context, accessToken, realm, userID string) (*gocloak.User, error)
}

// KeycloakDirectory resolves users through the Keycloak admin API.
// Lookups run behind a circuit breaker; unknown users do not count as failures.
type KeycloakDirectory struct {
	client   GoCloakClient
	cfg      config.Keycloak
	breaker  *gobreaker.CircuitBreaker[*model.User]
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewKeycloakDirectory(client GoCloakClient, cfg config.Keycloak, cb config.CircuitBreakerConfig, logger *slog.Logger) *KeycloakDirectory {
	return &KeycloakDirectory{
		client:  client,
		cfg:     cfg,
		breaker: newBreaker(cb),
		logger:  logger.With("component", "keycloak_directory"),
		now:     time.Now,
	}
}

func newBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*model.User] {
	st := gobreaker.Settings{
		Name:        "keycloak-directory-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrNotFound)
		},
	}
	return gobreaker.NewCircuitBreaker[*model.User](st)
}

func (d *KeycloakDirectory) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := d.breaker.Execute(func() (*model.User, error) {
		return d.lookup(ctx, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return user, err
}

func (d *KeycloakDirectory) lookup(ctx context.Context, id uuid.UUID) (*model.User, error) {
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	kcUser, err := d.client.GetUserByID(ctx, token, d.cfg.Realm, id.String())
	if err != nil {
		var apiErr *gocloak.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case http.StatusNotFound:
				return nil, apperrors.ErrUserNotFound
			case http.StatusUnauthorized:
				d.resetToken()
			}
		}
		d.logger.Error("Failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: failed to get user %s: %v", ErrDirectoryUnavailable, id, err)
	}
	return &model.User{ID: id, Email: gocloak.PString(kcUser.Email)}, nil
}

// accessToken returns a cached service-account token, logging in again shortly before expiry.
func (d *KeycloakDirectory) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token != "" && d.now().Before(d.tokenExp) {
		return d.token, nil
	}
	jwt, err := d.client.LoginClient(ctx, d.cfg.ClientID, d.cfg.ClientSecret, d.cfg.Realm)
	if err != nil {
		d.logger.Error("Failed to login", "error", err)
		return "", fmt.Errorf("%w: failed to login to Keycloak: %v", ErrDirectoryUnavailable, err)
	}
	d.token = jwt.AccessToken
	d.tokenExp = d.now().Add(time.Duration(jwt.ExpiresIn)*time.Second - 10*time.Second)
	return d.token, nil
}

func (d *KeycloakDirectory) resetToken() {
	d.mu.Lock()
	d.token = ""
	d.mu.Unlock()
}
