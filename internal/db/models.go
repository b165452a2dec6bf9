package db

import (
	"time"
)

// Article maps the NewsNexus Articles table.
type Article struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	URL       *string   `gorm:"column:url;type:text"`
	Headline  *string   `gorm:"column:headline;type:text"`
	Text      *string   `gorm:"column:text;type:text"`
	CreatedAt time.Time `gorm:"column:createdAt;not null"`
	UpdatedAt time.Time `gorm:"column:updatedAt;not null"`
}

func (Article) TableName() string { return "Articles" }

// ArticleApproved maps ArticleApproveds. articleId references Articles.id;
// the report headline/text are the fields the content and embedding stages
// compare.
type ArticleApproved struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ArticleID            int64     `gorm:"column:articleId;not null;unique"`
	HeadlineForPdfReport *string   `gorm:"column:headlineForPdfReport;type:text"`
	TextForPdfReport     *string   `gorm:"column:textForPdfReport;type:text"`
	CreatedAt            time.Time `gorm:"column:createdAt;not null"`
	UpdatedAt            time.Time `gorm:"column:updatedAt;not null"`
}

func (ArticleApproved) TableName() string { return "ArticleApproveds" }

// ArticleDuplicateRating holds one (new, approved) pair. Each score column
// is nullable; NULL means that stage has not scored the pair yet.
type ArticleDuplicateRating struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ArticleIDNew      int64     `gorm:"column:articleIdNew;not null;uniqueIndex:uq_article_pair,priority:1"`
	ArticleIDApproved int64     `gorm:"column:articleIdApproved;not null;uniqueIndex:uq_article_pair,priority:2"`
	URLCheck          *float64  `gorm:"column:urlCheck"`
	ContentHash       *float64  `gorm:"column:contentHash"`
	EmbeddingSearch   *float64  `gorm:"column:embeddingSearch"`
	CreatedAt         time.Time `gorm:"column:createdAt;not null"`
	UpdatedAt         time.Time `gorm:"column:updatedAt;not null"`
}

func (ArticleDuplicateRating) TableName() string { return "ArticleDuplicateRatings" }

func autoMigrateModels() []any {
	return []any{
		&Article{},
		&ArticleApproved{},
		&ArticleDuplicateRating{},
	}
}
