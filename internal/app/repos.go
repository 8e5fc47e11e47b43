package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type Repos struct {
	Documents repos.DocumentRepo
	Chunks    repos.ChunkRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents: repos.NewDocumentRepo(db, log),
		Chunks:    repos.NewChunkRepo(db, log),
	}
}
