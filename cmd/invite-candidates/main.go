package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/certiq/certiq-backend/internal/config"
	"github.com/certiq/certiq-backend/internal/database"
	"github.com/certiq/certiq-backend/internal/logger"
	"github.com/certiq/certiq-backend/internal/repository"
	"github.com/google/uuid"
)

// Invites a list of candidate emails to an examination. Input is a CSV
// file whose first column is the email address; re-running with the same
// file is safe because invitations upsert on (examination, email).
func main() {
	examIDFlag := flag.String("exam", "", "examination UUID to invite candidates to")
	fileFlag := flag.String("file", "", "CSV file with candidate emails in the first column")
	flag.Parse()

	if *examIDFlag == "" || *fileFlag == "" {
		fmt.Println("Usage: invite-candidates -exam <examination-uuid> -file <emails.csv>")
		os.Exit(1)
	}

	examID, err := uuid.Parse(*examIDFlag)
	if err != nil {
		fmt.Printf("Error: invalid examination UUID: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	candidateRepo := repository.NewCandidateRepository(pool)

	f, err := os.Open(*fileFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open CSV file")
	}
	defer f.Close()

	fmt.Printf("=== Inviting candidates to exam %s ===\n", examID)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	successCount := 0
	skipCount := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read CSV record")
		}
		if len(record) == 0 {
			continue
		}

		email := strings.TrimSpace(strings.ToLower(record[0]))
		if email == "" || email == "email" || !strings.Contains(email, "@") {
			skipCount++
			continue
		}

		if err := candidateRepo.Invite(ctx, examID, email); err != nil {
			fmt.Printf("Error inviting %s: %v\n", email, err)
			continue
		}
		successCount++
		if successCount%100 == 0 {
			fmt.Printf("Invited %d candidates...\n", successCount)
		}
	}

	fmt.Printf("\nDone! Invited %d candidates (%d rows skipped).\n", successCount, skipCount)
}
