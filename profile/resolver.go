package profile

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/facebook"
)

// FallbackName is used when the Graph API profile lookup fails. Ingestion
// never blocks on a missing profile.
const FallbackName = "Facebook User"

// Profile is a customer's display name and avatar.
type Profile struct {
	Name       string `json:"name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// Fetcher fetches a profile from the Graph API.
type Fetcher interface {
	GetUserProfile(ctx context.Context, userID, accessToken string) (*facebook.UserProfile, error)
}

// Cache is an optional read-through cache in front of the fetcher.
type Cache interface {
	GetProfile(ctx context.Context, customerID string) (*Profile, bool)
	SetProfile(ctx context.Context, customerID string, profile Profile) error
}

// Resolver resolves customer profiles with a fixed fallback. Pass a nil
// cache to resolve straight from the Graph API every time.
type Resolver struct {
	fetcher Fetcher
	cache   Cache
}

func NewResolver(fetcher Fetcher, cache Cache) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   cache,
	}
}

// Resolve returns the customer's profile. Lookup failures degrade to the
// fallback profile rather than surfacing an error.
func (r *Resolver) Resolve(ctx context.Context, customerID, accessToken string) Profile {
	if r.cache != nil {
		if cached, ok := r.cache.GetProfile(ctx, customerID); ok {
			return *cached
		}
	}

	fetched, err := r.fetcher.GetUserProfile(ctx, customerID, accessToken)
	if err != nil {
		log.Warn().
			Err(err).
			Str("customer_id", customerID).
			Msg("Profile lookup failed, using fallback")
		return Profile{Name: FallbackName}
	}

	profile := Profile{
		Name:       fetched.Name,
		PictureURL: fetched.ProfilePic,
	}
	if profile.Name == "" {
		profile.Name = FallbackName
	}

	if r.cache != nil {
		if err := r.cache.SetProfile(ctx, customerID, profile); err != nil {
			log.Warn().Err(err).Str("customer_id", customerID).Msg("Failed to cache profile")
		}
	}

	return profile
}
