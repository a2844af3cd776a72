package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/constants"
)

var ErrNoSession = errors.New("no session stored")

// Storage persists the session id between runs. Load returns ErrNoSession when nothing is stored yet.
type Storage interface {
	Load(c context.Context) (string, error)
	Save(c context.Context, id string) error
}

type Provider struct {
	mu       sync.Mutex
	storage  Storage
	fallback string
	newID    func() string
}

func NewProvider(storage Storage) *Provider {
	return &Provider{storage: storage, newID: uuid.NewString}
}

// GetOrCreateSessionID never fails. When the storage cannot be read or written the id lives
// in memory for the lifetime of the provider.
func (p *Provider) GetOrCreateSessionID(c context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Provider GetOrCreateSessionID").
		Logger()

	if p.fallback != "" {
		return p.fallback
	}

	if p.storage != nil {
		logger = logger.With().Str(constants.KEY_PROCESS, "loading session id").Logger()
		logger.Trace().Msg("loading session id")
		id, err := p.storage.Load(c)
		if err == nil && id != "" {
			logger.Trace().Str(constants.KEY_SESSION_ID, id).Msg("loaded session id")
			return id
		}
		if err != nil && !errors.Is(err, ErrNoSession) {
			err = fmt.Errorf("failed loading session id with error=%w", err)
			logger.Warn().Err(err).Msg(err.Error())
		}
	}

	id := p.newID()
	logger = logger.With().
		Str(constants.KEY_PROCESS, "saving session id").
		Str(constants.KEY_SESSION_ID, id).
		Logger()
	if p.storage == nil {
		logger.Warn().Msg("no session storage keeping session id in memory")
		p.fallback = id
		return id
	}

	logger.Trace().Msg("saving session id")
	if err := p.storage.Save(c, id); err != nil {
		err = fmt.Errorf("failed saving session id with error=%w", err)
		logger.Warn().Err(err).Msg("session storage unavailable keeping session id in memory")
		p.fallback = id
		return id
	}
	logger.Trace().Msg("saved session id")
	return id
}

type sessionKey struct{}

func AttachToContext(c context.Context, id string) context.Context {
	return context.WithValue(c, sessionKey{}, id)
}

func FromContext(c context.Context) string {
	if c == nil {
		return ""
	}
	id, _ := c.Value(sessionKey{}).(string)
	return id
}
