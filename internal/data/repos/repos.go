package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-assistant/internal/data/repos/documents"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

type DocumentRepo = documents.DocumentRepo
type ChunkRepo = documents.ChunkRepo

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return documents.NewDocumentRepo(db, baseLog)
}
func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return documents.NewChunkRepo(db, baseLog)
}
