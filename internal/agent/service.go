package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crystaldolphin/waypoint/internal/location"
	"github.com/crystaldolphin/waypoint/internal/preferences"
	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/session"
	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
	"github.com/crystaldolphin/waypoint/internal/tools"
)

const jpegDataURLPrefix = "data:image/jpeg;base64,"

var (
	ErrEmptyQuery   = errors.New("query must not be empty")
	ErrInvalidImage = errors.New("image must be base64-encoded JPEG data")
)

// QueryRequest is a restaurant, place or trip question.
type QueryRequest struct {
	ConversationID string
	Intent         string
	Query          string
	Lat            float64
	Lon            float64
}

// TourGuideRequest asks about what the camera sees. MaskedImage is optional.
type TourGuideRequest struct {
	ConversationID string
	BaseImage      string
	MaskedImage    string
	Location       string
	Lat            float64
	Lon            float64
}

// Run is one accepted request. Its events are produced lazily, once.
type Run struct {
	ConversationID string
	Transcript     *Transcript
	events         iter.Seq[schema.Event]
}

// Events returns the event sequence. When the range loop ends, for any
// reason, the conversation has been saved.
func (r *Run) Events() iter.Seq[schema.Event] { return r.events }

// Service binds the loop to conversations, prompts and tool subsets.
type Service struct {
	loop     *Loop
	registry *tools.Registry
	store    *session.Store
	prefs    *preferences.Store
	locator  *location.Resolver
	ttl      time.Duration
	now      func() time.Time
}

func NewService(
	loop *Loop,
	registry *tools.Registry,
	store *session.Store,
	prefs *preferences.Store,
	locator *location.Resolver,
	ttl time.Duration,
) *Service {
	return &Service{
		loop:     loop,
		registry: registry,
		store:    store,
		prefs:    prefs,
		locator:  locator,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Query validates req and prepares its run. Validation errors are returned
// before any conversation is touched.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*Run, error) {
	intent, err := ParseIntent(req.Intent)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	slog.Info("Processing query",
		"intent", intent,
		"conversation", req.ConversationID,
		"query", llmutils.Truncate(req.Query, 80),
	)
	return s.start(ctx, runSpec{
		id:     req.ConversationID,
		intent: intent,
		prompt: req.Query,
		lat:    req.Lat,
		lon:    req.Lon,
	}), nil
}

// TourGuide prepares a run that identifies what the caller is looking at.
func (s *Service) TourGuide(ctx context.Context, req TourGuideRequest) (*Run, error) {
	base, err := decodeJPEG(req.BaseImage)
	if err != nil {
		return nil, fmt.Errorf("base_image: %w", err)
	}
	images := []schema.ImageBlock{base}

	masked := strings.TrimSpace(req.MaskedImage) != ""
	if masked {
		img, err := decodeJPEG(req.MaskedImage)
		if err != nil {
			return nil, fmt.Errorf("masked_image: %w", err)
		}
		images = append(images, img)
	}

	slog.Info("Processing tour guide request",
		"conversation", req.ConversationID,
		"images", len(images),
		"lat", req.Lat,
		"lon", req.Lon,
	)
	return s.start(ctx, runSpec{
		id:       req.ConversationID,
		intent:   IntentTourGuide,
		prompt:   tourGuideUserPrompt(masked),
		images:   images,
		masked:   masked,
		location: req.Location,
		lat:      req.Lat,
		lon:      req.Lon,
	}), nil
}

type runSpec struct {
	id       string
	intent   Intent
	prompt   string
	images   []schema.ImageBlock
	masked   bool
	location string
	lat, lon float64
}

func (s *Service) start(ctx context.Context, spec runSpec) *Run {
	if spec.id == "" {
		spec.id = uuid.NewString()
	}
	tr := NewTranscript(schema.NewMessages())
	run := &Run{ConversationID: spec.id, Transcript: tr}

	run.events = func(yield func(schema.Event) bool) {
		s.store.Sweep(s.ttl)

		conv := s.store.Acquire(spec.id)
		defer s.store.Release(conv)

		tr.Messages = s.store.History(conv)
		defer func() {
			s.store.Save(conv, tr.Messages)
			slog.Info("Conversation saved",
				"conversation", spec.id,
				"state", tr.State,
				"messages", tr.Messages.Len(),
				"modelCalls", tr.ModelCalls,
				"disconnected", tr.Disconnected,
			)
		}()

		hasLocation := spec.lat != 0 || spec.lon != 0
		ctx := tools.WithTurn(ctx, tools.TurnContext{
			ConversationID: spec.id,
			Lat:            spec.lat,
			Lon:            spec.lon,
			HasLocation:    hasLocation,
		})

		turn := Turn{
			Prompt: spec.prompt,
			Images: spec.images,
			System: s.systemPrompt(ctx, spec, hasLocation),
			Tools:  s.registry.Subset(spec.intent.Tools()...),
		}
		for ev := range s.loop.Run(ctx, tr, turn) {
			if !yield(ev) {
				return
			}
		}
	}
	return run
}

func (s *Service) systemPrompt(ctx context.Context, spec runSpec, hasLocation bool) string {
	pc := PromptContext{
		Location: spec.location,
		Lat:      spec.lat,
		Lon:      spec.lon,
		Now:      s.now(),
	}
	if spec.intent != IntentTrip && pc.Location == "" {
		pc.Location = location.Unknown
		if hasLocation {
			pc.Location = s.locator.Resolve(ctx, spec.lat, spec.lon)
		}
	}
	if spec.intent == IntentRestaurant || spec.intent == IntentPlace {
		pc.Preferences = s.prefs.List()
	}
	return BuildSystemPrompt(spec.intent, pc, spec.masked)
}

// decodeJPEG strips a data-URL prefix and checks the payload is base64.
func decodeJPEG(raw string) (schema.ImageBlock, error) {
	data := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), jpegDataURLPrefix))
	if data == "" {
		return schema.ImageBlock{}, ErrInvalidImage
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return schema.ImageBlock{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return schema.ImageBlock{MediaType: "image/jpeg", Data: data}, nil
}
