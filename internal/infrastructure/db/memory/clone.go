package memory

import (
	"slices"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func cloneArtist(p *domain.ArtistProfile) *domain.ArtistProfile {
	c := *p
	return &c
}

func cloneManager(p *domain.ManagerProfile) *domain.ManagerProfile {
	c := *p
	return &c
}

func cloneCollaboration(col *domain.Collaboration) *domain.Collaboration {
	c := *col
	c.Songs = slices.Clone(col.Songs)
	return &c
}

func cloneRoyalty(r *domain.Royalty) *domain.Royalty {
	c := *r
	return &c
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.ApprovedAt != nil {
		at := *tx.ApprovedAt
		c.ApprovedAt = &at
	}
	return &c
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	c := *n
	return &c
}
