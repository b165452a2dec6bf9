package db

import (
	"fmt"
	"strings"
)

// Stage names a score column of ArticleDuplicateRatings.
type Stage string

const (
	StageURLCheck        Stage = "urlCheck"
	StageContentHash     Stage = "contentHash"
	StageEmbeddingSearch Stage = "embeddingSearch"
)

func Stages() []Stage {
	return []Stage{StageURLCheck, StageContentHash, StageEmbeddingSearch}
}

func ParseStage(raw string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "urlcheck", "url":
		return StageURLCheck, nil
	case "contenthash", "content":
		return StageContentHash, nil
	case "embeddingsearch", "embedding":
		return StageEmbeddingSearch, nil
	default:
		return "", fmt.Errorf("unknown stage %q", raw)
	}
}

func (s Stage) Valid() bool {
	switch s {
	case StageURLCheck, StageContentHash, StageEmbeddingSearch:
		return true
	default:
		return false
	}
}

// Column returns the quoted column identifier. Quoting keeps the camelCase
// names intact on both sqlite and postgres.
func (s Stage) Column() string {
	return `"` + string(s) + `"`
}

func (s Stage) String() string {
	return string(s)
}
