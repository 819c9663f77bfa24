package repository

import (
	"context"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// FavouriteRepository stores the results users saved, with a snapshot of the
// normalized result so remote favourites render without the catalog.
type FavouriteRepository interface {
	// Add saves a favourite. Saving the same result again refreshes the snapshot.
	Add(ctx context.Context, fav *domain.Favourite) (*domain.Favourite, error)

	// Remove deletes a favourite.
	// Returns domain.ErrNotFound if the user has not saved the result.
	Remove(ctx context.Context, userID, resultID string) error

	// List returns a user's favourites, most recent first.
	List(ctx context.Context, userID string) ([]*domain.Favourite, error)
}
