package service

import (
	"context"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-moderation/attributes"
	"github.com/goliatone/go-moderation/command"
	"github.com/goliatone/go-moderation/content"
	"github.com/goliatone/go-moderation/counts"
	"github.com/goliatone/go-moderation/foreignid"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/goliatone/go-moderation/query"
	"github.com/goliatone/go-moderation/queue"
	"github.com/goliatone/go-moderation/translate"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service is the entry point for go-moderation. It wires the queue store,
// content models, session and hooks supplied by the host application into
// command and query facades.
type Service struct {
	cfg        Config
	repo       types.QueueRepository
	registry   *content.Registry
	moderators *command.ModeratorResolver
	counts     *counts.Service
	commands   Commands
	queries    Queries
}

// Commands exposes the service command handlers.
type Commands struct {
	Premoderate  *command.PremoderateCommand
	SaveItem     *command.SaveItemCommand
	Approve      *command.ApproveCommand
	Deny         *command.DenyCommand
	ApproveWhere *command.ApproveWhereCommand
	DenyWhere    *command.DenyWhereCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Item     *query.ItemQuery
	List     *query.ListQuery
	Rows     *query.RowsQuery
	Counts   *query.CountsQuery
	Statuses *query.StatusesQuery
}

// Config captures all dependencies so callers can provide their own
// instances (bun.DB, cached repositories, Redis count caches, hooks, etc.).
type Config struct {
	// Repository overrides the Bun store built from DB.
	Repository        types.QueueRepository
	DB                *bun.DB
	RepositoryOptions []queue.RepositoryOption

	ContentModels       types.ContentModels
	Session             types.Session
	ModeratorPermission string
	Moderator           uuid.UUID
	SystemUserID        uuid.UUID
	PremoderationPolicy types.PremoderationPolicy
	TransitionPolicy    types.TransitionPolicy
	FeatureGate         featuregate.FeatureGate

	CountCache types.CountCache
	CountTTL   time.Duration

	DefaultQueue  string
	DefaultFormat string
	MaxAttributes int
	ForeignIDs    *foreignid.Generator

	Hooks       types.Hooks
	Clock       types.Clock
	IDGenerator types.IDGenerator
	Logger      types.Logger
	Masker      *masker.Masker
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	codec := attributes.NewCodec(norm.MaxAttributes)

	repo := norm.Repository
	if repo == nil && norm.DB != nil {
		built, err := queue.NewRepository(queue.RepositoryConfig{
			DB:    norm.DB,
			Clock: norm.Clock,
			IDGen: norm.IDGenerator,
			Codec: codec,
		}, norm.RepositoryOptions...)
		if err != nil {
			norm.Logger.Error("go-moderation: queue repository initialization failed", err)
		} else {
			repo = built
		}
	}

	registry := content.NewRegistry(norm.ContentModels)
	moderators := command.NewModeratorResolver(norm.Session, norm.ModeratorPermission)
	moderators.SetModerator(norm.Moderator)

	var counter types.StatusCounter
	if repo != nil {
		counter = repo
	}

	s := &Service{
		cfg:        norm,
		repo:       repo,
		registry:   registry,
		moderators: moderators,
		counts: counts.NewService(counts.Config{
			Counter: counter,
			Cache:   norm.CountCache,
			TTL:     norm.CountTTL,
			Logger:  norm.Logger,
		}),
	}
	translator := translate.New(translate.Config{
		Discussions:   registry.Discussions(),
		Session:       norm.Session,
		IDs:           norm.ForeignIDs,
		DefaultQueue:  norm.DefaultQueue,
		DefaultFormat: norm.DefaultFormat,
	})
	s.commands = s.buildCommands(translator, codec)
	s.queries = s.buildQueries(codec)
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.Session == nil {
		cfg.Session = types.StaticSession{}
	}
	if cfg.TransitionPolicy == nil {
		cfg.TransitionPolicy = types.DefaultTransitionPolicy()
	}
	if cfg.MaxAttributes <= 0 {
		cfg.MaxAttributes = attributes.DefaultMaxAttributes
	}
	if cfg.CountTTL <= 0 {
		cfg.CountTTL = counts.DefaultTTL
	}
	if cfg.CountCache == nil {
		cfg.CountCache = counts.NewMemoryCache(cfg.CountTTL)
	}
	if cfg.ForeignIDs == nil {
		cfg.ForeignIDs = foreignid.New(nil)
	}
	if cfg.Masker == nil {
		cfg.Masker = command.DefaultMasker()
	}
	return cfg
}

func (s *Service) buildCommands(translator *translate.Translator, codec *attributes.Codec) Commands {
	review := command.ReviewCommandConfig{
		Repository: s.repo,
		Content:    s.registry,
		Translator: translator,
		Moderators: s.moderators,
		Policy:     s.cfg.TransitionPolicy,
		Clock:      s.cfg.Clock,
		Logger:     s.cfg.Logger,
		Hooks:      s.cfg.Hooks,
	}
	approve := command.NewApproveCommand(review)
	deny := command.NewDenyCommand(review)
	return Commands{
		Premoderate: command.NewPremoderateCommand(command.PremoderateCommandConfig{
			Repository:   s.repo,
			Translator:   translator,
			Policy:       s.cfg.PremoderationPolicy,
			FeatureGate:  s.cfg.FeatureGate,
			Session:      s.cfg.Session,
			SystemUserID: s.cfg.SystemUserID,
			Clock:        s.cfg.Clock,
			IDGen:        s.cfg.IDGenerator,
			Logger:       s.cfg.Logger,
			Hooks:        s.cfg.Hooks,
			Masker:       s.cfg.Masker,
		}),
		SaveItem: command.NewSaveItemCommand(command.SaveItemCommandConfig{
			Repository: s.repo,
			Codec:      codec,
			Session:    s.cfg.Session,
			Clock:      s.cfg.Clock,
			IDGen:      s.cfg.IDGenerator,
			Logger:     s.cfg.Logger,
		}),
		Approve:      approve,
		Deny:         deny,
		ApproveWhere: command.NewApproveWhereCommand(s.repo, approve),
		DenyWhere:    command.NewDenyWhereCommand(s.repo, deny),
	}
}

func (s *Service) buildQueries(codec *attributes.Codec) Queries {
	return Queries{
		Item:     query.NewItemQuery(s.repo),
		List:     query.NewListQuery(s.repo),
		Rows:     query.NewRowsQuery(s.repo, codec),
		Counts:   query.NewCountsQuery(s.counts),
		Statuses: query.NewStatusesQuery(),
	}
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// SetModerator configures the moderator used when commands do not name one.
func (s *Service) SetModerator(id uuid.UUID) {
	s.moderators.SetModerator(id)
}

// Moderator resolves the acting moderator for ctx.
func (s *Service) Moderator(ctx context.Context) (uuid.UUID, error) {
	return s.moderators.Resolve(ctx, uuid.Nil)
}

// Content returns the content publisher registry so hosts can register
// additional models after construction.
func (s *Service) Content() *content.Registry {
	return s.registry
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil && s.repo != nil && s.hasContentModel()
}

// HealthCheck surfaces missing configuration to upstream transports.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if s.repo == nil {
		return types.ErrMissingRepository
	}
	if !s.hasContentModel() {
		return types.ErrMissingContentModel
	}
	return nil
}

func (s *Service) hasContentModel() bool {
	models := s.cfg.ContentModels
	return models.Comments != nil || models.Discussions != nil || models.Activities != nil
}
