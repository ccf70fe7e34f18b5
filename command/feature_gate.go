package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
)

// featureEnabled resolves a gate for the acting user. A nil gate keeps the
// feature off.
func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, userID uuid.UUID) (bool, error) {
	if gate == nil {
		return false, nil
	}
	if userID == uuid.Nil {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeChain(featureScopeChain(userID)))
}

// featureScopeChain resolves user overrides before the system default.
func featureScopeChain(userID uuid.UUID) featuregate.ScopeChain {
	return featuregate.ScopeChain{
		{Kind: featuregate.ScopeUser, ID: userID.String()},
		{Kind: featuregate.ScopeSystem},
	}
}
