// Package dungeonclient asks the dungeon service for rooms and falls back to
// a fixed local room when the service cannot deliver one.
package dungeonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/cloudquest/internal/combat"
	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
)

// GeneratePath is appended to the configured base URL.
const GeneratePath = "/generate-dungeon"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// Session holds the player parameters sent with every request.
type Session struct {
	ProgressionLevel int
	SkillScore       float64
}

// Result is a room tagged with where it came from.
type Result struct {
	Origin dungeon.Origin
	Room   dungeon.Room

	// Raw is the response body exactly as received. Nil for local rooms.
	Raw json.RawMessage

	// Err is the classified failure that caused a local fallback.
	Err error
}

// Degraded reports whether the room is the local substitute.
func (r Result) Degraded() bool {
	return r.Origin == dungeon.OriginLocal
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.http = c
	}
}

// Provider requests rooms for one player session.
type Provider struct {
	http        *http.Client
	endpoint    string
	dungeonType string

	mu       sync.Mutex
	session  Session
	current  *Result
	entities []*combat.Entity
}

// New creates a provider for the service at cfg.BaseURL.
func New(cfg config.ClientConfig, opts ...Option) *Provider {
	dungeonType := cfg.DungeonType
	if dungeonType == "" {
		dungeonType = dungeon.TypeStandard
	}

	p := &Provider{
		http:        &http.Client{Timeout: cfg.Timeout()},
		endpoint:    strings.TrimSuffix(cfg.BaseURL, "/") + GeneratePath,
		dungeonType: dungeonType,
		session:     Session{ProgressionLevel: 1, SkillScore: 0.5},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the current session parameters.
func (p *Provider) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// SetProgressionLevel sets the player level sent with requests. Levels below 1 become 1.
func (p *Provider) SetProgressionLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.ProgressionLevel = max(1, level)
}

// SetSkillScore sets the skill score, clamped to 0..1.
func (p *Provider) SetSkillScore(score float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.SkillScore = min(1, max(0, score))
}

// CurrentResource returns the last generated result, or nil before the first call.
func (p *Provider) CurrentResource() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ActiveEntities returns the entities spawned from the current room.
func (p *Provider) ActiveEntities() []*combat.Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entities
}

// Generate asks the service for a room. It never fails: any error is
// classified, logged, and answered with the local room tagged OriginLocal.
func (p *Provider) Generate(ctx context.Context) Result {
	session := p.Session()
	req := dungeon.Request{
		PlayerLevel: session.ProgressionLevel,
		SkillScore:  session.SkillScore,
		DungeonType: p.dungeonType,
	}

	room, raw, err := p.fetch(ctx, req)
	if err != nil {
		logger.Warning("Dungeon service unavailable, using local room",
			"endpoint", p.endpoint,
			"kind", kindOf(err),
			"error", err)
		result := p.GenerateLocal()
		result.Err = err
		p.store(result)
		return result
	}

	result := Result{Origin: dungeon.OriginRemote, Room: room, Raw: raw}
	logger.Info("Dungeon generated",
		"origin", result.Origin,
		"layout", room.Layout,
		"enemies", len(room.Enemies),
		"level", req.PlayerLevel)
	p.store(result)
	return result
}

// GenerateLocal builds the fallback result without any I/O.
func (p *Provider) GenerateLocal() Result {
	return Result{Origin: dungeon.OriginLocal, Room: dungeon.LocalRoom()}
}

func (p *Provider) store(result Result) {
	entities := combat.EntitiesFromRoom(result.Room)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &result
	p.entities = entities
}

func (p *Provider) fetch(ctx context.Context, req dungeon.Request) (dungeon.Room, json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindDecode, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindNetwork, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return dungeon.Room{}, nil, &GenerationError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindNetwork, Err: err}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindDecode, Err: errors.New("response is not a JSON object")}
	}

	var room dungeon.Room
	if err := json.Unmarshal(trimmed, &room); err != nil {
		return dungeon.Room{}, nil, &GenerationError{Kind: KindDecode, Err: err}
	}

	return room, json.RawMessage(raw), nil
}

func kindOf(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind.String()
	}
	return "unknown"
}
