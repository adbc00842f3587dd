package main

import (
	"log"
	"os"
	"time"

	"rag-orchestrator-be/internal/model"
	"rag-orchestrator-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds a demo tenant with a session and two completed documents so the
// query pipeline can be exercised right after migration. Chunks carry no
// vectors; run a real upload to index content.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	tenantId := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	userId := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	color.Cyan("Seeding demo tenant %s...", tenantId)

	documents := []model.Document{
		{
			Id:            uuid.New(),
			TenantId:      tenantId,
			Filename:      "onboarding-guide.txt",
			MimeType:      "text/plain",
			Status:        "completed",
			ExtractedText: "Welcome to the platform. Upload documents, attach them to a session and ask questions about their content.",
			ChunkCount:    1,
			CreatedAt:     time.Now(),
		},
		{
			Id:            uuid.New(),
			TenantId:      tenantId,
			Filename:      "billing-faq.txt",
			MimeType:      "text/plain",
			Status:        "completed",
			ExtractedText: "Invoices are issued monthly. Usage is metered per embedded chunk and per generated answer.",
			ChunkCount:    1,
			CreatedAt:     time.Now(),
		},
	}

	session := model.ConversationSession{
		Id:        uuid.New(),
		TenantId:  tenantId,
		UserId:    userId,
		Title:     "Demo session",
		Mode:      "auto",
		CreatedAt: time.Now(),
	}

	for i := range documents {
		if err := db.Create(&documents[i]).Error; err != nil {
			color.Red("Failed to seed document %s: %v", documents[i].Filename, err)
			continue
		}
		chunk := model.DocumentChunk{
			Id:         uuid.New(),
			DocumentId: documents[i].Id,
			ChunkIndex: 0,
			Content:    documents[i].ExtractedText,
			CreatedAt:  time.Now(),
		}
		if err := db.Create(&chunk).Error; err != nil {
			color.Red("Failed to seed chunk for %s: %v", documents[i].Filename, err)
		}
	}

	if err := db.Create(&session).Error; err != nil {
		color.Red("Failed to seed session: %v", err)
	} else {
		for _, doc := range documents {
			link := model.SessionDocument{
				Id:         uuid.New(),
				SessionId:  session.Id,
				DocumentId: doc.Id,
				IsActive:   true,
				CreatedAt:  time.Now(),
			}
			if err := db.Create(&link).Error; err != nil {
				color.Red("Failed to attach document %s: %v", doc.Filename, err)
			}
		}
	}

	color.Green("Done. Tenant %s has %d documents and session %s.", tenantId, len(documents), session.Id)
}
