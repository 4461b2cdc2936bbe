// File: cmd/seed/main.go
package main

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iyunix/go-muro/internal/config"
	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository"
	"github.com/iyunix/go-muro/internal/repository/message"
)

type seedMessage struct {
	role    domain.Role
	content string
	age     time.Duration
}

type seedConversation struct {
	title    string
	created  time.Duration
	updated  time.Duration
	messages []seedMessage
}

var conversations = []seedConversation{
	{
		title:   "Project Specifications Review",
		created: 2 * time.Hour,
		updated: time.Hour,
		messages: []seedMessage{
			{domain.RoleUser, "What are the key electrical requirements in the specs?", 2 * time.Hour},
			{domain.RoleAssistant, `Based on my analysis of the electrical specifications, the key requirements include:

1. **Main Service**: 400A, 480V/277V 3-phase service
2. **Emergency Power**: Generator backup for critical systems
3. **Lighting**: LED fixtures with 0-10V dimming capability
4. **Data Infrastructure**: CAT6A cabling throughout

Would you like me to elaborate on any of these points?`, 2 * time.Hour},
			{domain.RoleUser, "Yes, tell me more about the emergency power requirements", time.Hour},
			{domain.RoleAssistant, `The emergency power requirements specify:

- **Generator Capacity**: Minimum 150kW diesel generator
- **Transfer Time**: Automatic transfer switch (ATS) with <10 second transfer
- **Runtime**: 24-hour fuel capacity at full load
- **Covered Systems**: Fire alarm, emergency lighting, elevators, and data center

Note that the specs also require weekly testing with logged results.`, time.Hour},
		},
	},
	{
		title:   "Bid Comparison Analysis",
		created: 24 * time.Hour,
		updated: 24 * time.Hour,
		messages: []seedMessage{
			{domain.RoleUser, "Compare the pricing from the three electrical bids", 24 * time.Hour},
			{domain.RoleAssistant, `Here's a comparison of the three electrical bids:

| Contractor | Base Bid | Alternates | Total |
|------------|----------|------------|-------|
| Acme Electric | $245,000 | $32,000 | $277,000 |
| PowerPro | $258,000 | $28,000 | $286,000 |
| City Electric | $239,000 | $41,000 | $280,000 |

City Electric has the lowest base bid but highest alternates. Acme appears to offer the best overall value.`, 24 * time.Hour},
		},
	},
	{
		// untitled, awaiting a reply
		created: 72 * time.Hour,
		updated: 72 * time.Hour,
		messages: []seedMessage{
			{domain.RoleUser, "Can you summarize the HVAC scope?", 72 * time.Hour},
		},
	},
}

func main() {
	cfg := config.LoadWithoutValidation()

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	defer repository.Close(db)
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	if err := seed(db, time.Now().UTC()); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Printf("Database seeded successfully: %d conversations", len(conversations))
}

// seed replaces all data with the sample conversations, timestamped relative
// to now.
func seed(db *gorm.DB, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&domain.Conversation{}).Error; err != nil {
			return err
		}

		for _, sc := range conversations {
			c := domain.Conversation{
				ID:        uuid.NewString(),
				CreatedAt: now.Add(-sc.created),
				UpdatedAt: now.Add(-sc.updated),
			}
			if sc.title != "" {
				title := sc.title
				c.Title = &title
			}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}

			for i, sm := range sc.messages {
				m := domain.Message{
					ID:             message.NewID(),
					ConversationID: c.ID,
					Role:           sm.role,
					Content:        sm.content,
					Status:         domain.StatusSent,
					// same-age rows still need a stable order
					CreatedAt: now.Add(-sm.age).Add(time.Duration(i) * time.Millisecond),
				}
				if err := tx.Create(&m).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
