// Package content routes approved queue items to the content model that
// publishes their foreign type.
package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-moderation/foreignid"
	"github.com/goliatone/go-moderation/pkg/types"
)

// Publisher publishes one foreign type into its content model.
type Publisher struct {
	kind  types.ForeignType
	model types.ContentModel
}

// Kind returns the foreign type handled by the publisher.
func (p *Publisher) Kind() types.ForeignType { return p.kind }

// Moderated reports whether published records carry the moderation
// attribute block.
func (p *Publisher) Moderated() bool {
	return p.kind == types.ForeignTypeComment || p.kind == types.ForeignTypeDiscussion
}

// Publish creates the content record. Activity comments go through the
// model's comment path.
func (p *Publisher) Publish(ctx context.Context, data types.Payload) (any, error) {
	if p.kind == types.ForeignTypeActivityComment {
		creator, ok := p.model.(types.CommentCreator)
		if !ok {
			return nil, fmt.Errorf("%w: %s model cannot create comments", types.ErrUnknownContentType, p.kind)
		}
		return creator.CreateComment(ctx, data)
	}
	return p.model.Create(ctx, data)
}

// Lookup fetches a published record, returning nil when it does not exist.
func (p *Publisher) Lookup(ctx context.Context, id string) (types.Payload, error) {
	return p.model.Lookup(ctx, id)
}

// Finalize runs the model's post-create hook when it has one.
func (p *Publisher) Finalize(ctx context.Context, id string, approved bool) error {
	finalizer, ok := p.model.(types.ContentFinalizer)
	if !ok {
		return nil
	}
	return finalizer.Finalize(ctx, id, approved)
}

// Published reports whether foreignID already references a record in the
// publisher's model. Ids not written by approval are never considered
// published.
func (p *Publisher) Published(ctx context.Context, foreignID string) (bool, error) {
	_, id, ok := foreignid.Decode(foreignID)
	if !ok {
		return false, nil
	}
	record, err := p.model.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Registry maps foreign types to publishers.
type Registry struct {
	mu         sync.RWMutex
	publishers map[types.ForeignType]*Publisher
}

// NewRegistry registers the supplied models. Activity comments share the
// activity model.
func NewRegistry(models types.ContentModels) *Registry {
	r := &Registry{publishers: make(map[types.ForeignType]*Publisher, 4)}
	r.Register(types.ForeignTypeComment, models.Comments)
	r.Register(types.ForeignTypeDiscussion, models.Discussions)
	r.Register(types.ForeignTypeActivity, models.Activities)
	r.Register(types.ForeignTypeActivityComment, models.Activities)
	return r
}

// Register installs or replaces the model for a foreign type. Nil models
// are ignored.
func (r *Registry) Register(kind types.ForeignType, model types.ContentModel) {
	if model == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[kind] = &Publisher{kind: kind, model: model}
}

// For returns the publisher for a foreign type. Type names are matched
// case-insensitively.
func (r *Registry) For(kind types.ForeignType) (*Publisher, error) {
	normalized, ok := types.ParseForeignType(string(kind))
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownContentType, kind)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	publisher := r.publishers[normalized]
	if publisher == nil {
		return nil, fmt.Errorf("%w: no model registered for %s", types.ErrUnknownContentType, normalized)
	}
	return publisher, nil
}

// Discussions returns the discussion model, used to resolve comment
// categories.
func (r *Registry) Discussions() types.ContentModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.publishers[types.ForeignTypeDiscussion]; p != nil {
		return p.model
	}
	return nil
}
