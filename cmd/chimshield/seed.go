package main

import (
	"context"
	"time"

	"github.com/chimshield/backend/internal/auth"
	"github.com/chimshield/backend/internal/store"
	"go.uber.org/zap"
)

// seed loads the stock catalog and, when credentials are configured, the
// admin account. The store is process-lifetime so this runs on every start.
func seed(ctx context.Context, logger *zap.Logger, settings Settings, users store.UserStore, teams store.TeamStore) error {
	if settings.AdminPassword != "" {
		hash, err := auth.HashPassword(settings.AdminPassword)
		if err != nil {
			return err
		}

		_, err = users.CreateUser(ctx, store.User{
			Name:         settings.AdminName,
			Email:        settings.AdminEmail,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no admin password configured, admin surfaces are unreachable")
	}

	stockTeams := []store.Team{
		{
			Name:        "VIPs Services",
			Type:        "VIP Protection",
			Location:    "Lilongwe, Blantyre, Mzuzu",
			Price:       180000,
			Rating:      4.7,
			Leader:      "John Doe",
			Members:     []string{"Jane Smith", "Mike Johnson"},
			Description: "Professional VIP protection team",
		},
		{
			Name:        "Residential Security",
			Type:        "Residential Security",
			Location:    "Lilongwe, Blantyre, Mzuzu",
			Price:       100000,
			Rating:      5.0,
			Leader:      "Sarah Williams",
			Members:     []string{"David Brown", "Emily Davis"},
			Description: "Security for residential buildings",
		},
		{
			Name:        "Wedding Specialists",
			Type:        "Event Security",
			Location:    "Lilongwe, Blantyre, Mzuzu",
			Price:       150000,
			Rating:      4.2,
			Leader:      "Robert Wilson",
			Members:     []string{"Lisa Taylor", "James Anderson"},
			Description: "Specialized security for weddings",
		},
	}

	now := time.Now()
	for _, team := range stockTeams {
		team.CreatedAt = now
		team.UpdatedAt = now

		_, err := teams.CreateTeam(ctx, team)
		if err != nil {
			return err
		}
	}

	return nil
}
