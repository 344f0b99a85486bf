package pipeline

import (
	"fmt"
	"strings"

	"cogsearch-go/internal/config"
	"cogsearch-go/internal/model"

	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter 将长文本切分为分块，按段落、行、句子、单词的顺序递归切分。
type Splitter struct {
	ts textsplitter.RecursiveCharacter
}

// NewSplitter 根据配置创建 Splitter，长度按字符（rune）计算。
func NewSplitter(cfg config.SplitterConfig) *Splitter {
	return &Splitter{ts: textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
	)}
}

// Split 切分文本，丢弃只含空白的分块。
func (s *Splitter) Split(text string) ([]model.Chunk, error) {
	parts, err := s.ts.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	chunks := make([]model.Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{PageContent: p})
	}
	return chunks, nil
}
